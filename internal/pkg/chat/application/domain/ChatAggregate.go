package chat

import (
	"errors"
	"time"
)

// Domain-level errors for chat behaviors
var (
	ErrInvalidConversation = errors.New("chat: conversation/message mismatch")
	ErrNotParticipant      = errors.New("chat: sender is not a participant in the conversation")
	ErrMissingParticipant  = errors.New("chat: participant id is required")
	ErrSameParticipant     = errors.New("chat: a conversation needs two distinct participants")
	ErrEmptyMessage        = errors.New("chat: empty message content")
)

// Chat is the domain aggregate for a conversation and its invariants.
//
// The application layer hydrates it with the conversation record before
// invoking its behaviors; persistence stays outside the domain.
type Chat struct {
	Conversation Conversation
}

// PostMessage applies domain rules and returns a validated message ready to persist.
//
// Validations:
// - Sender must occupy one of the two participant slots
// - Content must not be blank
//
// The creation instant always comes from now (the server clock), so messages of
// both senders share a single ordering source.
func (c *Chat) PostMessage(senderID, content string, now time.Time) (*Message, error) {
	if c.Conversation.ID == "" {
		return nil, ErrInvalidConversation
	}
	if !c.Conversation.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	return NewMessage(c.Conversation.ID, senderID, content, now)
}
