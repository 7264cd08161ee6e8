package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/repository"
	"github.com/freeeve/conquest/pkg/conquest"
)

const (
	defaultResultLimit = 20
	maxResultLimit     = 100
	spectatePing       = 30 * time.Second
)

// GameViewer reads game state through the dispatcher.
type GameViewer interface {
	Games(ctx context.Context) ([]conquest.GameSummary, error)
	Game(ctx context.Context, gameID string) (conquest.GameSnapshot, error)
}

// Spectator streams the mirrored events of a game.
type Spectator interface {
	Spectate(ctx context.Context, gameID string) (<-chan []byte, func() error, error)
}

// GameHandler serves the read-only game endpoints.
type GameHandler struct {
	games     GameViewer
	archive   repository.MatchArchive
	spectator Spectator
}

// NewGameHandler creates a GameHandler. archive and spectator may be nil
// when Postgres or Redis are not configured.
func NewGameHandler(games GameViewer, archive repository.MatchArchive, spectator Spectator) *GameHandler {
	return &GameHandler{games: games, archive: archive, spectator: spectator}
}

// Routes mounts the handler under /api/v1.
func (h *GameHandler) Routes(r chi.Router) {
	r.Get("/games", h.ListGames)
	r.Get("/games/{id}", h.GetGame)
	r.Get("/games/{id}/battles", h.ListBattles)
	r.Get("/games/{id}/events", h.Spectate)
	r.Get("/results", h.ListResults)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.Games(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeList(w, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	snap, err := h.games.Game(r.Context(), gameID)
	if err != nil {
		if errors.Is(err, conquest.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListBattles handles GET /api/v1/games/{id}/battles
func (h *GameHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	battles, err := h.archive.ListBattles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error().Err(err).Msg("List battles failed")
		writeError(w, http.StatusInternalServerError, "failed to list battles")
		return
	}
	writeList(w, battles)
}

// ListResults handles GET /api/v1/results?limit=N
func (h *GameHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	limit := defaultResultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxResultLimit)
	}
	results, err := h.archive.ListResults(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("List results failed")
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	writeList(w, results)
}

// Spectate handles GET /api/v1/games/{id}/events as a server-sent event
// stream of the game's room events.
func (h *GameHandler) Spectate(w http.ResponseWriter, r *http.Request) {
	if h.spectator == nil {
		writeError(w, http.StatusServiceUnavailable, "spectating not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	gameID := chi.URLParam(r, "id")
	events, stop, err := h.spectator.Spectate(r.Context(), gameID)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Spectate failed")
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(spectatePing)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: game\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
