package handler

// BroadcastGameEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastGameEvent(gameID string, eventType string, data any) {
	h.BroadcastToGame(gameID, WSEvent{
		Type:   eventType,
		GameID: gameID,
		Data:   data,
	})
}

// SendToConn implements service.Broadcaster for messages meant for a
// single connection.
func (h *Hub) SendToConn(connID string, gameID string, eventType string, data any) {
	h.SendTo(connID, WSEvent{
		Type:   eventType,
		GameID: gameID,
		Data:   data,
	})
}
