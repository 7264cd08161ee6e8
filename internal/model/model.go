package model

import "time"

// GameResult is the archived outcome of an ended game.
type GameResult struct {
	GameID   string    `json:"game_id"`
	GameName string    `json:"game_name"`
	Winner   string    `json:"winner,omitempty"` // empty when the game ended without a victor
	Ticks    uint64    `json:"ticks"`
	Days     uint64    `json:"days"`
	Players  int       `json:"players"`
	EndedAt  time.Time `json:"ended_at"`
}

// BattleRecord is an archived, resolved engagement.
type BattleRecord struct {
	BattleID    string    `json:"battle_id"`
	GameID      string    `json:"game_id"`
	ProvinceID  string    `json:"province_id"`
	AttackerID  string    `json:"attacker_id"`
	DefenderIDs []string  `json:"defender_ids"`
	Winner      string    `json:"winner"`
	Rounds      int       `json:"rounds"`
	StartedTick uint64    `json:"started_tick"`
	EndedTick   uint64    `json:"ended_tick"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ChatRecord is an archived chat line.
type ChatRecord struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id,omitempty"` // set on private messages
	Channel     string    `json:"channel"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
