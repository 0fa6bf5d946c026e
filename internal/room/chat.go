package room

import "time"

const (
	maxMessageLength = 140
	chatHistoryLimit = 100
)

// Message is one chat line posted by a player (spec.md §4.1).
type Message struct {
	ClientID uint64    `json:"client"`
	Content  string    `json:"content"`
	Created  time.Time `json:"creation"`
}

// Chat is the bounded-history talk log attached to a room.
type Chat struct {
	messages []Message
}

func newChat() *Chat { return &Chat{} }

// Add appends a length-capped message from clientID.
func (c *Chat) Add(clientID uint64, content string) Message {
	if len(content) > maxMessageLength {
		content = content[:maxMessageLength]
	}
	m := Message{ClientID: clientID, Content: content, Created: time.Now()}
	c.messages = append(c.messages, m)
	return m
}

// Serialize returns at most the most recent limit messages (0 uses the
// default history limit).
func (c *Chat) Serialize(limit int) []Message {
	if limit <= 0 {
		limit = chatHistoryLimit
	}
	if len(c.messages) <= limit {
		return append([]Message(nil), c.messages...)
	}
	return append([]Message(nil), c.messages[len(c.messages)-limit:]...)
}
