package handler

import (
	"context"
	"net/http"
	"time"

	natsclient "github.com/mehraj-vivasoft/pihr-autoquery/internal/nats"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

// readyTimeout bounds the dependency checks of a readiness check.
const readyTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	store      store.Store
	natsClient *natsclient.Client
}

// NewHealthHandler creates a new health handler. natsClient is nil unless
// exchanges are persisted through the queue.
func NewHealthHandler(st store.Store, natsClient *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		store:      st,
		natsClient: natsClient,
	}
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready. It reports every dependency and fails when any
// of them is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := readiness{Status: "ready", Checks: map[string]string{"store": "ok"}}
	if err := h.store.Ping(ctx); err != nil {
		resp.Checks["store"] = "unreachable"
		resp.Status = "not ready"
	}

	if h.natsClient != nil {
		resp.Checks["nats"] = "ok"
		if !h.natsClient.IsConnected() {
			resp.Checks["nats"] = "disconnected"
			resp.Status = "not ready"
		}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
