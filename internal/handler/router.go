package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/middleware"
)

// RouterConfig collects the handlers mounted by NewRouter.
type RouterConfig struct {
	WS          *WSHandler
	Games       *GameHandler
	Health      *HealthHandler
	JWT         *auth.JWTManager // nil disables authentication
	CORSOrigins []string
}

// NewRouter builds the HTTP surface: health, the read-only REST API and
// the WebSocket endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover, middleware.Logger, middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", cfg.Health.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.JSON)
		cfg.Games.Routes(r)
	})
	r.With(auth.Optional(cfg.JWT)).Get("/ws", cfg.WS.ServeWS)

	return r
}
