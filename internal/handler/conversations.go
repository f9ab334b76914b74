// Package handler provides HTTP handlers for the ledger API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/middleware"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/service"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = middleware.GetUserID(r.Context())
	}

	if err := validateAll(
		middleware.ValidateID("id", req.ID),
		middleware.ValidateID("owner_id", req.OwnerID),
		middleware.ValidateSubject(req.Subject),
	); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeOwner(w, r, req.OwnerID) || !authorizeConversation(w, r, req.ID) {
		return
	}

	conv, created, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, "create conversation", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		ownerID = r.URL.Query().Get("user_id")
	}
	if ownerID == "" {
		ownerID = middleware.GetUserID(r.Context())
	}
	if err := middleware.ValidateID("owner_id", ownerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeOwner(w, r, ownerID) {
		return
	}

	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.List(r.Context(), ownerID, page, size)
	if err != nil {
		writeServiceError(w, r, h.logger, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Info handles GET /api/v1/conversations/{id}/info
func (h *ConversationHandler) Info(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateID("conversation_id", conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeConversation(w, r, conversationID) {
		return
	}

	conv, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, r, h.logger, "get conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Update handles PUT /api/v1/conversations/{id}
func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateID("conversation_id", conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeConversation(w, r, conversationID) {
		return
	}

	var req model.UpdateConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateSubject(req.Subject); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateSubject(r.Context(), conversationID, &req); err != nil {
		writeServiceError(w, r, h.logger, "update conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":      conversationID,
		"subject": req.Subject,
	})
}

// Delete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateID("conversation_id", conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeConversation(w, r, conversationID) {
		return
	}

	if err := h.service.Delete(r.Context(), conversationID); err != nil {
		writeServiceError(w, r, h.logger, "delete conversation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pageParams reads the page and limit query parameters. Both default to
// the first page of DefaultPageSize items.
func pageParams(r *http.Request) (page, size int, err error) {
	if page, err = queryInt(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(r, "limit", pagination.DefaultPageSize); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func validateAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
