package repository

import (
	"context"
	"errors"

	chat "duochat/internal/pkg/chat/application/domain"
)

// ErrNotFound is returned by adapters when the requested row does not exist.
var ErrNotFound = errors.New("repository: record not found")

// ChatRepository defines persistence operations for conversations and messages.
// Messages are append-only; nothing here updates or deletes them.
type ChatRepository interface {
	CreateConversation(ctx context.Context, c chat.Conversation) (string, error)
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	ListConversationsByParticipant(ctx context.Context, userID string) ([]chat.Conversation, error)
	SaveMessage(ctx context.Context, m chat.Message) (string, error)
	// GetMessagesByConversation returns messages ascending by creation instant,
	// ties broken by insertion order.
	GetMessagesByConversation(ctx context.Context, conversationID string) ([]chat.Message, error)
	// GetLastMessage returns nil, nil when the conversation has no messages.
	GetLastMessage(ctx context.Context, conversationID string) (*chat.Message, error)
}
