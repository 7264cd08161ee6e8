package postgres

import (
	"context"
	"fmt"

	"github.com/freeeve/conquest/internal/model"
)

// RecordChat inserts a chat line. RecipientID may be empty for non-private channels.
func (r *ArchiveRepo) RecordChat(ctx context.Context, m model.ChatRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, game_id, sender_id, recipient_id, channel, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, m.GameID, m.SenderID, nullStr(m.RecipientID), m.Channel, m.Content, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record chat: %w", err)
	}
	return nil
}
