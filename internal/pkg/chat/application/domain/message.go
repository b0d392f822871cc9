package chat

import (
	"strings"
	"time"
)

// Message is an immutable log entry in a conversation.
// Content is opaque here; the attachment codec decides how to read it.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// NewMessage validates the identity fields and content, and stamps the
// server-side creation instant. Any client supplied CreatedAt is overwritten.
func NewMessage(conversationID, senderID, content string, now time.Time) (*Message, error) {
	if conversationID == "" || senderID == "" {
		return nil, ErrInvalidConversation
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now.UTC(),
	}, nil
}
