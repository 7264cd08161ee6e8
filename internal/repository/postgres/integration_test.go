//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/testutil"
)

func setup(t *testing.T) *ArchiveRepo {
	t.Helper()
	db := testutil.DB(t)
	if err := Migrate(t.Context(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	testutil.TruncateArchive(t, db)
	return NewArchiveRepo(db)
}

func TestRecordAndListResults(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"g1", "g2"} {
		err := repo.RecordResult(ctx, model.GameResult{
			GameID: id, GameName: "Game " + id, Winner: "alice",
			Ticks: 48, Days: 2, Players: 2, EndedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	results, err := repo.ListResults(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GameID != "g2" {
		t.Errorf("expected newest first, got %s", results[0].GameID)
	}
	if results[0].Ticks != 48 || results[0].Winner != "alice" {
		t.Errorf("unexpected result %+v", results[0])
	}
}

func TestRecordResultWithoutWinner(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	if err := repo.RecordResult(ctx, model.GameResult{GameID: "g1", GameName: "g1", EndedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	results, err := repo.ListResults(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 1 || results[0].Winner != "" {
		t.Fatalf("expected one result without winner, got %+v", results)
	}
}

func TestRecordBattleIsIdempotent(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	b := model.BattleRecord{
		BattleID: "b1", GameID: "g1", ProvinceID: "ironridge",
		AttackerID: "alice", DefenderIDs: []string{"bob", "carol"},
		Winner: "alice", Rounds: 3, StartedTick: 10, EndedTick: 12,
	}
	for range 2 {
		if err := repo.RecordBattle(ctx, b); err != nil {
			t.Fatalf("record battle: %v", err)
		}
	}

	battles, err := repo.ListBattles(ctx, "g1")
	if err != nil {
		t.Fatalf("list battles: %v", err)
	}
	if len(battles) != 1 {
		t.Fatalf("expected 1 battle, got %d", len(battles))
	}
	got := battles[0]
	if len(got.DefenderIDs) != 2 || got.DefenderIDs[1] != "carol" || got.EndedTick != 12 {
		t.Errorf("unexpected battle %+v", got)
	}
}

func TestRecordChat(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	err := repo.RecordChat(ctx, model.ChatRecord{
		ID: "m1", GameID: "g1", SenderID: "alice", Channel: "global",
		Content: "hello", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("record chat: %v", err)
	}

	var count int
	if err := testutil.DB(t).QueryRow(`SELECT count(*) FROM chat_messages WHERE game_id = 'g1'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 stored message, got %d", count)
	}
}
