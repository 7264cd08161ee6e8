package service

import (
	"sync"
	"time"
)

// Binding ties a connection to a player in a game.
type Binding struct {
	ConnID   string
	GameID   string
	PlayerID string
	BoundAt  time.Time
	Latency  time.Duration // last measured round trip, zero until measured
}

type playerKey struct {
	gameID   string
	playerID string
}

// SessionManager keeps the connection -> (game, player) table and the
// (game, player) -> latest connection table. Only the dispatcher writes;
// readers on other goroutines take the read lock.
type SessionManager struct {
	mu       sync.RWMutex
	byConn   map[string]*Binding
	byPlayer map[playerKey]string
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		byConn:   make(map[string]*Binding),
		byPlayer: make(map[playerKey]string),
	}
}

// Bind makes connID the current connection of the player. It returns the
// connection it superseded, if any. A connection holds at most one binding,
// so binding it again replaces its previous one.
func (s *SessionManager) Bind(connID, gameID, playerID string, now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byConn[connID]; ok {
		s.dropLocked(old)
	}
	key := playerKey{gameID, playerID}
	prev := s.byPlayer[key]
	if prev == connID {
		prev = ""
	}
	if prev != "" {
		delete(s.byConn, prev)
	}
	s.byConn[connID] = &Binding{ConnID: connID, GameID: gameID, PlayerID: playerID, BoundAt: now}
	s.byPlayer[key] = connID
	return prev
}

// Unbind removes the binding of a connection and returns it.
func (s *SessionManager) Unbind(connID string) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byConn[connID]
	if !ok {
		return Binding{}, false
	}
	s.dropLocked(b)
	return *b, true
}

func (s *SessionManager) dropLocked(b *Binding) {
	delete(s.byConn, b.ConnID)
	key := playerKey{b.GameID, b.PlayerID}
	if s.byPlayer[key] == b.ConnID {
		delete(s.byPlayer, key)
	}
}

// Lookup returns the binding of a connection.
func (s *SessionManager) Lookup(connID string) (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byConn[connID]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// ConnFor returns the current connection of a player.
func (s *SessionManager) ConnFor(gameID, playerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPlayer[playerKey{gameID, playerID}]
	return id, ok
}

// RecordLatency stores a round-trip measurement. Measurements for
// connections that are no longer bound are discarded.
func (s *SessionManager) RecordLatency(connID string, rtt time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byConn[connID]
	if !ok {
		return false
	}
	b.Latency = rtt
	return true
}

// DropGame removes every binding of a game and returns the affected
// connection ids.
func (s *SessionManager) DropGame(gameID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var conns []string
	for id, b := range s.byConn {
		if b.GameID == gameID {
			conns = append(conns, id)
			s.dropLocked(b)
		}
	}
	return conns
}

// Count returns the number of bound connections.
func (s *SessionManager) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byConn)
}
