package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/middleware"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/service"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// BillingHandler handles billing endpoints.
type BillingHandler struct {
	service *service.BillingService
	logger  *logger.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(svc *service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		service: svc,
		logger:  log,
	}
}

// Query handles GET /api/v1/billing
func (h *BillingHandler) Query(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	resp, err := h.service.Query(r.Context(), service.BillingQuery{
		From:       q.Get("from"),
		To:         q.Get("to"),
		Frequency:  model.Frequency(q.Get("frequency")),
		PageNumber: page,
		PageSize:   size,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "query billing", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Monthly handles GET /api/v1/billing/users/{owner_id}/monthly. Callers
// read their own report; other owners need the admin scope.
func (h *BillingHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	if err := middleware.ValidateID("owner_id", ownerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !authorizeOwner(w, r, ownerID) {
		return
	}

	report, err := h.service.MonthlyReport(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, r, h.logger, "build monthly report", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
