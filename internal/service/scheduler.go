package service

import (
	"context"
	"sync"
	"time"

	"github.com/freeeve/conquest/internal/logger"
)

// Scheduler runs one ticker goroutine per playing game. A ticker never
// touches game state: it only asks the dispatcher to run a tick, so tick
// steps of one game are serialised with every other step.
type Scheduler struct {
	period time.Duration
	fire   func(ctx context.Context, gameID string) error

	mu     sync.Mutex
	base   context.Context
	timers map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler that calls fire every period for each
// started game. fire may block until the tick is accepted.
func NewScheduler(period time.Duration, fire func(ctx context.Context, gameID string) error) *Scheduler {
	return &Scheduler{
		period: period,
		fire:   fire,
		base:   context.Background(),
		timers: make(map[string]context.CancelFunc),
	}
}

// Bind sets the parent context of every timer started afterwards.
func (s *Scheduler) Bind(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
}

// Start launches the timer of a game. Starting a running timer is a no-op.
func (s *Scheduler) Start(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[gameID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(s.base)
	s.timers[gameID] = cancel
	s.wg.Add(1)
	go s.run(ctx, gameID)
	lg := logger.ForGame(gameID)
	lg.Info().Dur("period", s.period).Msg("Game timer started")
}

func (s *Scheduler) run(ctx context.Context, gameID string) {
	defer s.wg.Done()
	lg := logger.ForGame(gameID)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.fire(ctx, gameID); err != nil {
				if ctx.Err() == nil {
					lg.Warn().Err(err).Msg("Tick request not delivered")
				}
				return
			}
		}
	}
}

// Stop cancels the timer of a game.
func (s *Scheduler) Stop(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.timers[gameID]; ok {
		cancel()
		delete(s.timers, gameID)
		lg := logger.ForGame(gameID)
		lg.Info().Msg("Game timer stopped")
	}
}

// Running reports whether a game has a live timer.
func (s *Scheduler) Running(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[gameID]
	return ok
}

// StopAll cancels every timer and waits for the goroutines to exit.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, cancel := range s.timers {
		cancel()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
