package handler

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent is the envelope for all outbound WebSocket messages.
type WSEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id,omitempty"`
	Data   any    `json:"data"`
}

// WSConn wraps a WebSocket connection with its id and send queue.
type WSConn struct {
	id       string
	conn     *websocket.Conn
	playerID string // authenticated player, empty when anonymous
	send     chan []byte
	pingSent atomic.Int64 // unix nanos of the last control ping
}

// Hub tracks live connections and the game rooms they belong to. Room
// membership is decided by the dispatcher through JoinRoom and LeaveRoom.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*WSConn
	rooms map[string]map[string]*WSConn // gameID -> connID -> conn
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*WSConn),
		rooms: make(map[string]map[string]*WSConn),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

// Unregister removes a connection from the hub and every room, and closes
// its send queue.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.id] != c {
		return
	}
	delete(h.conns, c.id)
	for gameID, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, gameID)
		}
	}
	close(c.send)
}

// JoinRoom adds a connection to the room of a game.
func (h *Hub) JoinRoom(connID, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	if h.rooms[gameID] == nil {
		h.rooms[gameID] = make(map[string]*WSConn)
	}
	h.rooms[gameID][connID] = c
}

// LeaveRoom removes a connection from the room of a game.
func (h *Hub) LeaveRoom(connID, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[gameID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, gameID)
		}
	}
}

// BroadcastToGame sends an event to every connection in a game room.
func (h *Hub) BroadcastToGame(gameID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[gameID] {
		h.enqueue(c, data, event.Type)
	}
}

// SendTo sends an event to one connection.
func (h *Hub) SendTo(connID string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connId", connID).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.conns[connID]; ok {
		h.enqueue(c, data, event.Type)
	}
}

// enqueue must be called with the read lock held so the queue cannot be
// closed underneath it.
func (h *Hub) enqueue(c *WSConn, data []byte, eventType string) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("connId", c.id).Str("type", eventType).Msg("Dropping WebSocket message, buffer full")
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomSize returns the number of connections in a game room.
func (h *Hub) RoomSize(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}
