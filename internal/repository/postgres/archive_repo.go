package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/conquest/internal/model"
)

// ArchiveRepo stores finished battles, game results and chat.
type ArchiveRepo struct {
	db *sql.DB
}

// NewArchiveRepo creates an ArchiveRepo.
func NewArchiveRepo(db *sql.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// Ping checks the database connection.
func (r *ArchiveRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RecordBattle inserts a resolved battle. Recording the same battle twice
// is a no-op.
func (r *ArchiveRepo) RecordBattle(ctx context.Context, b model.BattleRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO battles (battle_id, game_id, province_id, attacker_id, defender_ids, winner, rounds, started_tick, ended_tick)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (battle_id) DO NOTHING`,
		b.BattleID, b.GameID, b.ProvinceID, b.AttackerID, pq.Array(b.DefenderIDs), b.Winner, b.Rounds,
		int64(b.StartedTick), int64(b.EndedTick),
	)
	if err != nil {
		return fmt.Errorf("record battle: %w", err)
	}
	return nil
}

// ListBattles returns the archived battles of a game in resolution order.
func (r *ArchiveRepo) ListBattles(ctx context.Context, gameID string) ([]model.BattleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT battle_id, game_id, province_id, attacker_id, defender_ids, winner, rounds, started_tick, ended_tick, recorded_at
		 FROM battles WHERE game_id = $1 ORDER BY ended_tick, battle_id`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var battles []model.BattleRecord
	for rows.Next() {
		var b model.BattleRecord
		var started, ended int64
		if err := rows.Scan(&b.BattleID, &b.GameID, &b.ProvinceID, &b.AttackerID, pq.Array(&b.DefenderIDs),
			&b.Winner, &b.Rounds, &started, &ended, &b.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan battle: %w", err)
		}
		b.StartedTick, b.EndedTick = uint64(started), uint64(ended)
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

// RecordResult stores the outcome of a game, replacing an earlier result
// for the same id.
func (r *ArchiveRepo) RecordResult(ctx context.Context, res model.GameResult) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_results (game_id, game_name, winner, ticks, days, players, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (game_id) DO UPDATE SET
		   game_name = EXCLUDED.game_name, winner = EXCLUDED.winner, ticks = EXCLUDED.ticks,
		   days = EXCLUDED.days, players = EXCLUDED.players, ended_at = EXCLUDED.ended_at`,
		res.GameID, res.GameName, nullStr(res.Winner), int64(res.Ticks), int64(res.Days), res.Players, res.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// ListResults returns the most recent game results, newest first.
func (r *ArchiveRepo) ListResults(ctx context.Context, limit int) ([]model.GameResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, game_name, COALESCE(winner, ''), ticks, days, players, ended_at
		 FROM game_results ORDER BY ended_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := []model.GameResult{}
	for rows.Next() {
		var res model.GameResult
		var ticks, days int64
		if err := rows.Scan(&res.GameID, &res.GameName, &res.Winner, &ticks, &days, &res.Players, &res.EndedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Ticks, res.Days = uint64(ticks), uint64(days)
		results = append(results, res)
	}
	return results, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
