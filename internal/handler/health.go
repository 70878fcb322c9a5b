package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/set-night/invoicing/internal/config"
)

const healthTimeout = 2 * time.Second

// Health reports liveness together with database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Service: config.ServiceName})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: config.ServiceName})
}
