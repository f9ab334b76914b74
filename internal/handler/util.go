package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/billing"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/middleware"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/service"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid request body")
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

// writeServiceError maps a service error onto a status code. Details of
// unexpected errors are logged and never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, action string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, billing.ErrInvalidDateFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrUnavailable):
		log.Error("store unavailable",
			zap.String("action", action),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		log.Error("failed to "+action,
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// authorizeOwner rejects callers that may not act for ownerID.
func authorizeOwner(w http.ResponseWriter, r *http.Request, ownerID string) bool {
	if !middleware.CanActAs(r.Context(), ownerID) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}

// authorizeConversation rejects callers outside the tenant encoded in
// conversationID.
func authorizeConversation(w http.ResponseWriter, r *http.Request, conversationID string) bool {
	if !middleware.CanAccessTenant(r.Context(), model.TenantID(conversationID)) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}
