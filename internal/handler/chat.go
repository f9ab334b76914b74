package handler

import (
	"net/http"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/middleware"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/service"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// ChatHandler handles the chat completion endpoint.
type ChatHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Complete handles POST /api/v1/chats
func (h *ChatHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.GetUserID(r.Context())
	}

	if err := validateAll(
		middleware.ValidateContent(req.Question),
		middleware.ValidateID("conversation_id", req.ConversationID),
		middleware.ValidateID("user_id", req.UserID),
	); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeOwner(w, r, req.UserID) || !authorizeConversation(w, r, req.ConversationID) {
		return
	}

	resp, err := h.service.Complete(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, h.logger, "answer question", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
