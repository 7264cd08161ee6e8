package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/conquest/pkg/conquest"
)

// Key patterns for Redis game state.
func snapshotKey(gameID string) string   { return "game:" + gameID + ":snapshot" }
func eventsChannel(gameID string) string { return "game:" + gameID + ":events" }
func gamesKey() string                   { return "games:live" }

// EventEnvelope is the message published on a game's event channel.
type EventEnvelope struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Data   any    `json:"data"`
}

// SetSnapshot stores the latest snapshot of a game and indexes the game
// as live. A zero ttl keeps the key until it is deleted.
func (c *Client) SetSnapshot(ctx context.Context, snap conquest.GameSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, snapshotKey(snap.ID), data, ttl)
	pipe.ZAdd(ctx, gamesKey(), redis.Z{Score: float64(snap.Tick), Member: snap.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the mirrored snapshot of a game. It returns nil
// without error when none is stored.
func (c *Client) GetSnapshot(ctx context.Context, gameID string) (*conquest.GameSnapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var snap conquest.GameSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// LiveGames lists the ids of games with a mirrored snapshot.
func (c *Client) LiveGames(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.ZRange(ctx, gamesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list live games: %w", err)
	}
	return ids, nil
}

// PublishEvent publishes an outbound game event for spectators.
func (c *Client) PublishEvent(ctx context.Context, gameID, eventType string, data any) error {
	payload, err := json.Marshal(EventEnvelope{Type: eventType, GameID: gameID, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.rdb.Publish(ctx, eventsChannel(gameID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Spectate subscribes to the event channel of a game and returns the raw
// envelopes. The channel closes when ctx ends or stop is called.
func (c *Client) Spectate(ctx context.Context, gameID string) (<-chan []byte, func() error, error) {
	sub := c.rdb.Subscribe(ctx, eventsChannel(gameID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe events: %w", err)
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, sub.Close, nil
}

// DeleteGameData removes all Redis data for a game.
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, snapshotKey(gameID))
	pipe.ZRem(ctx, gamesKey(), gameID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete game data: %w", err)
	}
	return nil
}
