package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/logger"
	"github.com/freeeve/conquest/internal/service"
	"github.com/freeeve/conquest/pkg/conquest"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
	submitWait  = 30 * time.Second
)

// kindUnavailable marks commands refused because the dispatcher is
// saturated or shutting down.
const kindUnavailable conquest.Kind = "unavailable"

// Submitter accepts commands for the dispatcher. SubmitWait blocks while
// the queue is full.
type Submitter interface {
	Submit(cmd service.Command) error
	SubmitWait(ctx context.Context, cmd service.Command) error
}

// ConnectedPayload greets a new connection.
type ConnectedPayload struct {
	ConnID     string `json:"connId"`
	PlayerID   string `json:"playerId,omitempty"`
	ServerTime int64  `json:"serverTime"`
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub      *Hub
	engine   Submitter
	upgrader websocket.Upgrader
	newID    func() string
}

// NewWSHandler creates a WSHandler. checkOrigin may be nil to accept any
// origin.
func NewWSHandler(hub *Hub, engine Submitter, checkOrigin func(*http.Request) bool) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		hub:    hub,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		newID: uuid.NewString,
	}
}

// ServeWS handles GET /ws and upgrades to WebSocket. When authentication is
// enabled the token is checked by auth.Optional before this runs.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		id:       h.newID(),
		conn:     conn,
		playerID: auth.PlayerIDFromContext(r.Context()),
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)

	// Send a welcome message so the client can confirm the connection is live.
	h.hub.SendTo(client.id, WSEvent{
		Type: service.EvtConnected,
		Data: ConnectedPayload{ConnID: client.id, PlayerID: client.playerID, ServerTime: time.Now().UnixMilli()},
	})

	go h.writePump(client)
	go h.readPump(client)

	log.Info().
		Str("connId", client.id).
		Str("playerId", client.playerID).
		Int("total", h.hub.ConnectionCount()).
		Msg("WebSocket client connected")
}

// readPump reads messages from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	lg := logger.ForConn(c.id)
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		if err := h.submitWait(service.Disconnect{ConnID: c.id}); err != nil {
			lg.Warn().Err(err).Msg("Disconnect not delivered")
		}
		lg.Info().Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if sent := c.pingSent.Load(); sent > 0 {
			rtt := time.Since(time.Unix(0, sent))
			h.engine.Submit(service.RecordLatency{ConnID: c.id, RTT: rtt})
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lg.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			break
		}
		h.handleMessage(c, message)
	}
}

func (h *WSHandler) handleMessage(c *WSConn, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		h.reject(c, "", errMalformed)
		return
	}

	if env.Type == service.MsgSystemPing {
		if ack, ok := pingAck(env); ok {
			h.hub.SendTo(c.id, WSEvent{
				Type: service.EvtSystemPong,
				Data: PongPayload{Ack: ack, ServerTime: time.Now().UnixMilli()},
			})
		}
		return
	}

	cmd, err := decodeCommand(c.id, c.playerID, env)
	if err != nil {
		if env.Type != service.MsgChatSend {
			h.reject(c, env.Type, err)
		}
		return
	}
	submit := h.engine.Submit
	if _, ok := cmd.(service.LeaveGame); ok {
		submit = h.submitWait
	}
	if err := submit(cmd); err != nil {
		lg := logger.ForConn(c.id)
		lg.Warn().Err(err).Str("type", env.Type).Msg("Command not queued")
		h.reject(c, env.Type, &conquest.Error{Kind: kindUnavailable, Msg: "server busy, try again"})
	}
}

func (h *WSHandler) submitWait(cmd service.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), submitWait)
	defer cancel()
	return h.engine.SubmitWait(ctx, cmd)
}

func (h *WSHandler) reject(c *WSConn, command string, err error) {
	reason := err.Error()
	var ce *conquest.Error
	if errors.As(err, &ce) && ce.Msg != "" {
		reason = ce.Msg
	}
	h.hub.SendTo(c.id, WSEvent{
		Type: service.EvtCommandRejected,
		Data: service.RejectedPayload{Command: command, Kind: conquest.KindOf(err), Reason: reason},
	})
}

// writePump writes messages to the WebSocket connection, one frame per
// message.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.pingSent.Store(time.Now().UnixNano())
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
