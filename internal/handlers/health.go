package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/platform/httpx"
)

// Pinger checks a downstream dependency for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	db      Pinger
	started time.Time
}

// NewHealthHandlers constructs the probes. db may be nil for liveness-only use.
func NewHealthHandlers(db Pinger) *HealthHandlers {
	return &HealthHandlers{db: db, started: time.Now()}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports readiness including the database round-trip.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "degraded",
				"database":  "unreachable",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"database":  "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
