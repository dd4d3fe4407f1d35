package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
	"github.com/vnprr/SnapDish/internal/pkg/response"
)

// HealthHandler reports whether the backing services are reachable.
type HealthHandler struct {
	checks map[string]Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a health handler. Nil pingers are skipped.
func NewHealthHandler(checks map[string]Pinger, logger *slog.Logger) *HealthHandler {
	live := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			live[name] = p
		}
	}
	return &HealthHandler{checks: live, logger: logger}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "dependency", name, "error", err)
			response.Error(w, apierrors.ErrServiceUnavailable.WithDetails(map[string]string{name: "unreachable"}))
			return
		}
	}

	response.OK(w, map[string]string{"status": "ok"})
}
