package handlers

import (
	"net/http"
	"time"

	"github.com/hydrosim/exchange/pkg/session"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the session registry initialized?
type HealthHandler struct {
	registry  *session.Registry
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
//
// The registry parameter may be nil, in which case the readiness probe
// reports unhealthy.
func NewHealthHandler(registry *session.Registry) *HealthHandler {
	return &HealthHandler{registry: registry, startedAt: time.Now()}
}

// Liveness handles GET /health.
//
// Returns 200 OK as long as the HTTP server is responsive. Designed for
// orchestrator liveness probes.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "exchanged",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 OK once the session registry is initialized, with the current
// live session count. Returns 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("registry not initialized"))
		return
	}

	WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"sessions": h.registry.Count(),
	}))
}
