// Package timeline keeps the client-side view of open conversations.
//
// A Store owns one Timeline per open conversation and applies every change
// (history snapshots, optimistic sends, gateway acknowledgements, pushes)
// on a single goroutine, so no two updates to a timeline ever race.
package timeline

import (
	"context"
	"time"

	"duochat/internal/infrastructure/realtime"
	"duochat/internal/pkg/chat/application/attachment"
	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
)

// EntryState tracks an entry from optimistic insert to a terminal state.
type EntryState int

const (
	Pending EntryState = iota
	Confirmed
	Failed
)

func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Entry is one rendered message. LocalID is set only for entries this
// client sent; MessageID once the server has assigned one.
type Entry struct {
	LocalID     string
	MessageID   string
	SenderID    string
	SenderName  string
	Raw         string
	Content     attachment.Content
	DisplayTime string
	At          time.Time
	State       EntryState
	Own         bool

	echoed bool
}

// Timeline is a read-only copy of one open conversation.
type Timeline struct {
	ConversationID string
	Contact        chat.Participant
	ContactStatus  chat.PresenceStatus
	LastSeenText   string
	Entries        []Entry
}

// Viewer is the participant this client acts as.
type Viewer struct {
	ID   string
	Name string
}

// Gateway is the request/response side of the server.
type Gateway interface {
	FetchHistory(ctx context.Context, conversationID, viewerID string) (*usecase.History, error)
	AppendMessage(ctx context.Context, conversationID, senderID, content string) (*chat.Message, error)
}

// PushChannel hands out room subscriptions. Publish announces to a room
// without holding a subscription; the store uses it for messages whose
// view closed before the append was acknowledged.
type PushChannel interface {
	Join(ctx context.Context, conversationID string) (Subscription, error)
	Publish(ctx context.Context, conversationID string, env realtime.Envelope) error
}

// Subscription is membership in one room. Close leaves the room.
type Subscription interface {
	Envelopes() <-chan realtime.Envelope
	Publish(env realtime.Envelope) error
	Close() error
}

// Attachment is an outgoing file or image.
type Attachment struct {
	Kind attachment.Kind
	Data []byte
	Name string
}

func (t Timeline) clone() Timeline {
	out := t
	out.Entries = append([]Entry(nil), t.Entries...)
	return out
}

func historyEntries(h *usecase.History) []Entry {
	entries := make([]Entry, 0, len(h.Messages))
	for _, m := range h.Messages {
		entries = append(entries, Entry{
			MessageID:   m.ID,
			SenderID:    m.SenderID,
			SenderName:  m.SenderName,
			Raw:         m.Content,
			Content:     attachment.Decode(m.Content),
			DisplayTime: m.DisplayTime,
			At:          m.CreatedAt,
			State:       Confirmed,
			Own:         m.SenderName == usecase.OwnSenderName,
		})
	}
	return entries
}
