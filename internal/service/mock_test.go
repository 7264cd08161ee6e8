package service

import (
	"context"
	"sync"
	"time"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/pkg/conquest"
)

type sent struct {
	connID    string // empty for room broadcasts
	gameID    string
	eventType string
	data      any
}

// recordingBroadcaster captures every outbound message and tracks rooms.
type recordingBroadcaster struct {
	mu    sync.Mutex
	msgs  []sent
	rooms map[string]map[string]bool
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{rooms: make(map[string]map[string]bool)}
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, sent{gameID: gameID, eventType: eventType, data: data})
}

func (b *recordingBroadcaster) SendToConn(connID, gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, sent{connID: connID, gameID: gameID, eventType: eventType, data: data})
}

func (b *recordingBroadcaster) JoinRoom(connID, gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[gameID] == nil {
		b.rooms[gameID] = make(map[string]bool)
	}
	b.rooms[gameID][connID] = true
}

func (b *recordingBroadcaster) LeaveRoom(connID, gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms[gameID], connID)
}

func (b *recordingBroadcaster) inRoom(connID, gameID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rooms[gameID][connID]
}

// received returns the eventType messages sent to connID directly plus the
// room broadcasts of rooms it is currently in.
func (b *recordingBroadcaster) received(connID, eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, m := range b.msgs {
		if m.eventType != eventType {
			continue
		}
		if m.connID == connID || (m.connID == "" && b.rooms[m.gameID][connID]) {
			out = append(out, m.data)
		}
	}
	return out
}

func (b *recordingBroadcaster) broadcasts(eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, m := range b.msgs {
		if m.connID == "" && m.eventType == eventType {
			out = append(out, m.data)
		}
	}
	return out
}

func (b *recordingBroadcaster) direct(connID, eventType string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, m := range b.msgs {
		if m.connID == connID && m.eventType == eventType {
			out = append(out, m.data)
		}
	}
	return out
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = nil
}

type publishedEvent struct {
	gameID    string
	eventType string
}

type mockCache struct {
	mu        sync.Mutex
	snapshots map[string]conquest.GameSnapshot
	ttl       time.Duration
	events    []publishedEvent
	deleted   []string
	err       error
}

func newMockCache() *mockCache {
	return &mockCache{snapshots: make(map[string]conquest.GameSnapshot)}
}

func (m *mockCache) SetSnapshot(_ context.Context, snap conquest.GameSnapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snapshots[snap.ID] = snap
	m.ttl = ttl
	return nil
}

func (m *mockCache) PublishEvent(_ context.Context, gameID, eventType string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{gameID: gameID, eventType: eventType})
	return nil
}

func (m *mockCache) DeleteGameData(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, gameID)
	delete(m.snapshots, gameID)
	return nil
}

func (m *mockCache) Ping(context.Context) error { return m.err }

type mockArchive struct {
	mu      sync.Mutex
	battles []model.BattleRecord
	results []model.GameResult
	chats   []model.ChatRecord
}

func (m *mockArchive) RecordBattle(_ context.Context, b model.BattleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battles = append(m.battles, b)
	return nil
}

func (m *mockArchive) RecordResult(_ context.Context, r model.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

func (m *mockArchive) RecordChat(_ context.Context, c model.ChatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, c)
	return nil
}

func (m *mockArchive) ListResults(_ context.Context, limit int) ([]model.GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.results) {
		limit = len(m.results)
	}
	return append([]model.GameResult(nil), m.results[:limit]...), nil
}

func (m *mockArchive) ListBattles(_ context.Context, gameID string) ([]model.BattleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BattleRecord
	for _, b := range m.battles {
		if b.GameID == gameID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockArchive) Ping(context.Context) error { return nil }
