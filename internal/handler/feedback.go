package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/middleware"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/service"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// FeedbackHandler handles feedback and rating endpoints.
type FeedbackHandler struct {
	service *service.FeedbackService
	logger  *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(svc *service.FeedbackService, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: svc,
		logger:  log,
	}
}

// Post handles POST /api/v1/messages/{message_id}/feedback
func (h *FeedbackHandler) Post(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "message_id")
	if err := middleware.ValidateID("message_id", messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.authorizeMessage(w, r, messageID) {
		return
	}

	var req model.FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fb, err := h.service.PostFeedback(r.Context(), messageID, req.IsLiked)
	if err != nil {
		writeServiceError(w, r, h.logger, "post feedback", err)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

// Rate handles POST /api/v1/messages/{message_id}/rating
func (h *FeedbackHandler) Rate(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "message_id")
	if err := middleware.ValidateID("message_id", messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.authorizeMessage(w, r, messageID) {
		return
	}

	var req model.RatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rating < 0 {
		writeError(w, http.StatusBadRequest, "rating must not be negative")
		return
	}

	fb, err := h.service.PostRating(r.Context(), messageID, req.Rating)
	if err != nil {
		writeServiceError(w, r, h.logger, "post rating", err)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

// authorizeMessage rejects callers outside the tenant of the conversation
// messageID belongs to. The lookup only runs for authenticated requests.
func (h *FeedbackHandler) authorizeMessage(w http.ResponseWriter, r *http.Request, messageID string) bool {
	if middleware.GetClaims(r.Context()) == nil {
		return true
	}
	msg, err := h.service.Message(r.Context(), messageID)
	if err != nil {
		writeServiceError(w, r, h.logger, "authorize feedback", err)
		return false
	}
	return authorizeConversation(w, r, msg.ConversationID)
}

// List handles GET /api/v1/feedbacks
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	isLike := true
	if v := r.URL.Query().Get("is_liked"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "is_liked must be a boolean")
			return
		}
		isLike = parsed
	}

	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.List(r.Context(), isLike, page, size)
	if err != nil {
		writeServiceError(w, r, h.logger, "list feedback", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /api/v1/feedbacks/summary
func (h *FeedbackHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "summarize feedback", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
