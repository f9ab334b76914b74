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

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations/{id}. Without a page parameter
// the last page is returned.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateID("conversation_id", conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeConversation(w, r, conversationID) {
		return
	}

	var pageNumber *int
	if r.URL.Query().Get("page") != "" {
		page, err := queryInt(r, "page", 1)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		pageNumber = &page
	}
	size, err := queryInt(r, "limit", pagination.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.GetPage(r.Context(), conversationID, pageNumber, size)
	if err != nil {
		writeServiceError(w, r, h.logger, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Context handles GET /api/v1/conversations/{id}/context
func (h *MessageHandler) Context(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateID("conversation_id", conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeConversation(w, r, conversationID) {
		return
	}

	limit, err := queryInt(r, "limit", service.DefaultContextWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msgs, err := h.service.RecentContext(r.Context(), conversationID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "load conversation context", err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

// Post handles POST /api/v1/conversations/messages
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req model.PostMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwnerID == "" {
		req.OwnerID = middleware.GetUserID(r.Context())
	}

	if err := validateAll(
		middleware.ValidateID("conversation_id", req.ConversationID),
		middleware.ValidateID("owner_id", req.OwnerID),
		middleware.ValidateContent(req.Content),
	); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeOwner(w, r, req.OwnerID) || !authorizeConversation(w, r, req.ConversationID) {
		return
	}

	msg, err := h.service.PostSingle(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, "post message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
