package repository

import (
	"context"
	"time"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/pkg/conquest"
)

// SnapshotCache mirrors live game state for observers outside the process
// (Redis). The server never reads its own state back from it.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, snap conquest.GameSnapshot, ttl time.Duration) error
	PublishEvent(ctx context.Context, gameID, eventType string, data any) error
	DeleteGameData(ctx context.Context, gameID string) error
	Ping(ctx context.Context) error
}

// MatchArchive stores finished battles, game results and chat (Postgres).
type MatchArchive interface {
	RecordBattle(ctx context.Context, b model.BattleRecord) error
	RecordResult(ctx context.Context, r model.GameResult) error
	RecordChat(ctx context.Context, m model.ChatRecord) error
	ListResults(ctx context.Context, limit int) ([]model.GameResult, error)
	ListBattles(ctx context.Context, gameID string) ([]model.BattleRecord, error)
	Ping(ctx context.Context) error
}
