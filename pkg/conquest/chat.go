package conquest

import "time"

// Channel scopes who receives a chat message.
type Channel string

const (
	ChannelGlobal   Channel = "global"
	ChannelAlliance Channel = "alliance"
	ChannelPrivate  Channel = "private"
)

// ValidChannel reports whether c is a known channel.
func ValidChannel(c Channel) bool {
	return c == ChannelGlobal || c == ChannelAlliance || c == ChannelPrivate
}

// ChatMessage is one relayed line of chat.
type ChatMessage struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"playerId"`
	AuthorName  string    `json:"username"`
	Text        string    `json:"message"`
	Channel     Channel   `json:"channel"`
	RecipientID string    `json:"recipientId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatLog is a fixed-capacity ring of chat messages. When full, appending
// evicts the oldest entry.
type ChatLog struct {
	buf   []ChatMessage
	head  int
	count int
}

// NewChatLog creates a log holding at most capacity messages.
func NewChatLog(capacity int) *ChatLog {
	if capacity < 1 {
		capacity = 1
	}
	return &ChatLog{buf: make([]ChatMessage, capacity)}
}

// Append stores m and reports whether an older message was evicted.
func (l *ChatLog) Append(m ChatMessage) bool {
	if l.count < len(l.buf) {
		l.buf[(l.head+l.count)%len(l.buf)] = m
		l.count++
		return false
	}
	l.buf[l.head] = m
	l.head = (l.head + 1) % len(l.buf)
	return true
}

// Messages returns the stored messages, oldest first.
func (l *ChatLog) Messages() []ChatMessage {
	out := make([]ChatMessage, l.count)
	for i := range l.count {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}

// Len reports the number of stored messages.
func (l *ChatLog) Len() int { return l.count }

// Cap reports the capacity of the log.
func (l *ChatLog) Cap() int { return len(l.buf) }
