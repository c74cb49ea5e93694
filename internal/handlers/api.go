package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
)

// healthTimeout bounds the storage round trip of a health probe
const healthTimeout = 2 * time.Second

// HealthChecker is satisfied by the storage manager
type HealthChecker interface {
	Backend() string
	Ping(ctx context.Context) error
}

// APIHandler serves the system endpoints
type APIHandler struct {
	health HealthChecker
	logger arbor.ILogger
}

func NewAPIHandler(health HealthChecker, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		health: health,
		logger: logger,
	}
}

// VersionHandler handles GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, common.GetBuildInfo())
}

// HealthHandler handles GET /api/health. It reports 503 when the store is unreachable.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if h.health == nil {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Str("storage", h.health.Backend()).Msg("Health check failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"storage": h.health.Backend(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": h.health.Backend(),
	})
}

// NotFoundHandler handles unmatched routes with a JSON 404
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"status": "error",
		"error":  "No route for " + r.Method + " " + r.URL.Path,
	})
}
