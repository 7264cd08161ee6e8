package service

import (
	"github.com/freeeve/conquest/pkg/conquest"
)

const maxChatLength = 500

// ChatRelay keeps a bounded history per game and decides who may read
// each message.
type ChatRelay struct {
	capacity int
	logs     map[string]*conquest.ChatLog
}

// NewChatRelay creates a relay keeping at most capacity messages per game.
func NewChatRelay(capacity int) *ChatRelay {
	return &ChatRelay{capacity: capacity, logs: make(map[string]*conquest.ChatLog)}
}

// Record appends m to the history of a game.
func (c *ChatRelay) Record(gameID string, m conquest.ChatMessage) {
	l, ok := c.logs[gameID]
	if !ok {
		l = conquest.NewChatLog(c.capacity)
		c.logs[gameID] = l
	}
	l.Append(m)
}

// History returns the messages of a game visible to viewer, oldest first.
// allied reports whether two players are in an alliance.
func (c *ChatRelay) History(gameID, viewer string, allied func(a, b string) bool) []conquest.ChatMessage {
	l, ok := c.logs[gameID]
	if !ok {
		return []conquest.ChatMessage{}
	}
	out := make([]conquest.ChatMessage, 0, l.Len())
	for _, m := range l.Messages() {
		if visible(m, viewer, allied) {
			out = append(out, m)
		}
	}
	return out
}

// Drop forgets the history of a game.
func (c *ChatRelay) Drop(gameID string) {
	delete(c.logs, gameID)
}

func visible(m conquest.ChatMessage, viewer string, allied func(a, b string) bool) bool {
	switch m.Channel {
	case conquest.ChannelGlobal:
		return true
	case conquest.ChannelPrivate:
		return viewer == m.AuthorID || viewer == m.RecipientID
	case conquest.ChannelAlliance:
		return viewer == m.AuthorID || allied(viewer, m.AuthorID)
	}
	return false
}
