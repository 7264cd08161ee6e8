package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/service"
	"github.com/freeeve/conquest/pkg/conquest"
)

type fakeSubmitter struct {
	cmds chan service.Command
	err  error
	full bool // non-blocking submits report a full queue
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{cmds: make(chan service.Command, 16)}
}

func (f *fakeSubmitter) Submit(cmd service.Command) error {
	if f.full {
		return service.ErrQueueFull
	}
	return f.SubmitWait(context.Background(), cmd)
}

func (f *fakeSubmitter) SubmitWait(ctx context.Context, cmd service.Command) error {
	if f.err != nil {
		return f.err
	}
	select {
	case f.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next returns the next submitted command, skipping latency samples.
func (f *fakeSubmitter) next(t *testing.T) service.Command {
	t.Helper()
	for {
		select {
		case cmd := <-f.cmds:
			if _, ok := cmd.(service.RecordLatency); ok {
				continue
			}
			return cmd
		case <-time.After(2 * time.Second):
			t.Fatal("no command submitted")
			return nil
		}
	}
}

type wsEnvelope struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Data   json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func newWSServer(t *testing.T, sub Submitter, jwtMgr *auth.JWTManager) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	h := NewWSHandler(hub, sub, nil)
	srv := httptest.NewServer(auth.Optional(jwtMgr)(http.HandlerFunc(h.ServeWS)))
	t.Cleanup(srv.Close)
	return hub, srv
}

func TestWSConnectedAndCommand(t *testing.T) {
	sub := newFakeSubmitter()
	hub, srv := newWSServer(t, sub, nil)
	conn := dialWS(t, srv, "")

	welcome := readWS(t, conn)
	if welcome.Type != service.EvtConnected {
		t.Fatalf("expected %s, got %s", service.EvtConnected, welcome.Type)
	}
	var hello ConnectedPayload
	json.Unmarshal(welcome.Data, &hello)
	if hello.ConnID == "" {
		t.Error("connected payload should carry the connection id")
	}
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 registered connection, got %d", hub.ConnectionCount())
	}

	conn.WriteJSON(map[string]any{
		"type": service.MsgArmyMove,
		"data": map[string]string{"armyId": "u1", "destinationProvinceId": "p2"},
	})
	cmd := sub.next(t)
	move, ok := cmd.(service.MoveArmy)
	if !ok {
		t.Fatalf("expected MoveArmy, got %T", cmd)
	}
	if move.ConnID != hello.ConnID || move.ArmyID != "u1" || move.Destination != "p2" {
		t.Errorf("unexpected command %+v", move)
	}
}

func TestWSPingPong(t *testing.T) {
	_, srv := newWSServer(t, newFakeSubmitter(), nil)
	conn := dialWS(t, srv, "")
	readWS(t, conn) // connected

	conn.WriteJSON(map[string]any{"type": service.MsgSystemPing, "data": map[string]string{"ack": "k1"}})
	env := readWS(t, conn)
	if env.Type != service.EvtSystemPong {
		t.Fatalf("expected %s, got %s", service.EvtSystemPong, env.Type)
	}
	var pong PongPayload
	json.Unmarshal(env.Data, &pong)
	if pong.Ack != "k1" || pong.ServerTime == 0 {
		t.Errorf("unexpected pong %+v", pong)
	}
}

func TestWSRejectsMalformedCommand(t *testing.T) {
	_, srv := newWSServer(t, newFakeSubmitter(), nil)
	conn := dialWS(t, srv, "")
	readWS(t, conn)

	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	env := readWS(t, conn)
	if env.Type != service.EvtCommandRejected {
		t.Fatalf("expected %s, got %s", service.EvtCommandRejected, env.Type)
	}

	conn.WriteJSON(map[string]any{"type": service.MsgArmyAttack, "data": map[string]string{"armyId": "u1"}})
	env = readWS(t, conn)
	var rej service.RejectedPayload
	json.Unmarshal(env.Data, &rej)
	if rej.Command != service.MsgArmyAttack || rej.Kind != conquest.KindValidation {
		t.Errorf("unexpected rejection %+v", rej)
	}
	if rej.Reason != "missing targetProvinceId" {
		t.Errorf("unexpected reason %q", rej.Reason)
	}
}

func TestWSDropsInvalidChatSilently(t *testing.T) {
	_, srv := newWSServer(t, newFakeSubmitter(), nil)
	conn := dialWS(t, srv, "")
	readWS(t, conn)

	conn.WriteJSON(map[string]any{"type": service.MsgChatSend})
	conn.WriteJSON(map[string]any{"type": service.MsgSystemPing, "ack": "after"})

	env := readWS(t, conn)
	if env.Type != service.EvtSystemPong {
		t.Errorf("invalid chat should not be answered, got %s", env.Type)
	}
}

func TestWSBusyDispatcher(t *testing.T) {
	sub := newFakeSubmitter()
	sub.full = true
	_, srv := newWSServer(t, sub, nil)
	conn := dialWS(t, srv, "")
	readWS(t, conn)

	conn.WriteJSON(map[string]any{
		"type": service.MsgArmyMove,
		"data": map[string]string{"armyId": "u1", "destinationProvinceId": "p2"},
	})
	env := readWS(t, conn)
	var rej service.RejectedPayload
	json.Unmarshal(env.Data, &rej)
	if env.Type != service.EvtCommandRejected || rej.Kind != kindUnavailable {
		t.Errorf("expected unavailable rejection, got %s %+v", env.Type, rej)
	}
}

func TestWSDisconnectSubmitted(t *testing.T) {
	sub := newFakeSubmitter()
	hub, srv := newWSServer(t, sub, nil)
	conn := dialWS(t, srv, "")
	welcome := readWS(t, conn)
	var hello ConnectedPayload
	json.Unmarshal(welcome.Data, &hello)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	cmd := sub.next(t)
	dc, ok := cmd.(service.Disconnect)
	if !ok || dc.ConnID != hello.ConnID {
		t.Errorf("expected Disconnect for %s, got %+v", hello.ConnID, cmd)
	}
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestWSLeaveAndDisconnectSurviveBusyDispatcher(t *testing.T) {
	sub := newFakeSubmitter()
	sub.full = true
	_, srv := newWSServer(t, sub, nil)
	conn := dialWS(t, srv, "")
	welcome := readWS(t, conn)
	var hello ConnectedPayload
	json.Unmarshal(welcome.Data, &hello)

	conn.WriteJSON(map[string]any{"type": service.MsgGameLeave})
	if _, ok := sub.next(t).(service.LeaveGame); !ok {
		t.Fatal("leave should wait for queue space instead of being rejected")
	}

	conn.Close()
	cmd := sub.next(t)
	if dc, ok := cmd.(service.Disconnect); !ok || dc.ConnID != hello.ConnID {
		t.Errorf("expected Disconnect for %s, got %+v", hello.ConnID, cmd)
	}
}

func TestWSAuthenticatedJoin(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret")
	token, err := jwtMgr.GenerateToken("alice")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	sub := newFakeSubmitter()
	_, srv := newWSServer(t, sub, jwtMgr)
	conn := dialWS(t, srv, "?token="+token)

	welcome := readWS(t, conn)
	var hello ConnectedPayload
	json.Unmarshal(welcome.Data, &hello)
	if hello.PlayerID != "alice" {
		t.Errorf("expected authenticated player alice, got %q", hello.PlayerID)
	}

	conn.WriteJSON(map[string]any{"type": service.MsgGameJoin, "data": map[string]string{"gameId": "g1", "playerId": "bob"}})
	env := readWS(t, conn)
	if env.Type != service.EvtCommandRejected {
		t.Errorf("joining as another player should be rejected, got %s", env.Type)
	}

	conn.WriteJSON(map[string]any{"type": service.MsgGameJoin, "data": map[string]string{"gameId": "g1", "playerId": "alice"}})
	if join, ok := sub.next(t).(service.JoinGame); !ok || join.PlayerID != "alice" {
		t.Errorf("expected JoinGame for alice, got %+v", join)
	}
}

func TestWSRejectsBadToken(t *testing.T) {
	_, srv := newWSServer(t, newFakeSubmitter(), auth.NewJWTManager("test-secret"))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %+v", resp)
	}
}
