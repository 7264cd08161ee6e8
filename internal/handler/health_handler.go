package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 3 * time.Second

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string            `json:"status"`
	Uptime      string            `json:"uptime"`
	Games       int               `json:"games"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks"`
}

// HealthHandler reports process liveness and dependency status.
type HealthHandler struct {
	games   GameViewer
	hub     *Hub
	checks  map[string]Checker
	started time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(games GameViewer, hub *Hub, checks map[string]Checker) *HealthHandler {
	return &HealthHandler{games: games, hub: hub, checks: checks, started: time.Now()}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:      "ok",
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		Connections: h.hub.ConnectionCount(),
		Checks:      make(map[string]string, len(h.checks)+1),
	}
	status := http.StatusOK

	if games, err := h.games.Games(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: dispatcher unavailable")
		resp.Checks["dispatcher"] = "error"
		status = http.StatusServiceUnavailable
	} else {
		resp.Games = len(games)
		resp.Checks["dispatcher"] = "ok"
	}

	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			log.Error().Err(err).Str("check", name).Msg("Health check failed")
			resp.Checks[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if status != http.StatusOK {
		resp.Status = "degraded"
	}
	writeJSON(w, status, resp)
}
