package service

// Broadcaster sends real-time events to connected clients and tracks which
// connections belong to which game room. Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastGameEvent(gameID string, eventType string, data any)
	SendToConn(connID string, gameID string, eventType string, data any)
	JoinRoom(connID, gameID string)
	LeaveRoom(connID, gameID string)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastGameEvent(string, string, any) {}
func (NoopBroadcaster) SendToConn(string, string, string, any) {}
func (NoopBroadcaster) JoinRoom(string, string)                {}
func (NoopBroadcaster) LeaveRoom(string, string)               {}
