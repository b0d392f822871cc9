package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/presence"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

// OwnSenderName labels the viewer's own messages.
const OwnSenderName = "You"

type FetchHistoryInput struct {
	ConversationID string
	ViewerID       string
}

// HistoryMessage is a stored message as the viewer sees it.
type HistoryMessage struct {
	chat.Message
	SenderName  string `json:"sender"`
	DisplayTime string `json:"time"`
}

// History is the snapshot a conversation view opens with.
// LastSeenText is empty when the contact has never been active.
type History struct {
	ConversationID string              `json:"conversationId"`
	Contact        chat.Participant    `json:"contact"`
	ContactStatus  chat.PresenceStatus `json:"contactStatus"`
	LastSeenText   string              `json:"lastSeen"`
	Messages       []HistoryMessage    `json:"messages"`
}

// FetchHistoryUseCase loads a conversation, its contact and its ordered messages.
type FetchHistoryUseCase struct {
	Repo         repository.ChatRepository
	Participants userRepository.ParticipantRepository
	Now          func() time.Time
	Location     *time.Location
}

func NewFetchHistoryUseCase(repo repository.ChatRepository, participants userRepository.ParticipantRepository) *FetchHistoryUseCase {
	return &FetchHistoryUseCase{Repo: repo, Participants: participants, Now: time.Now}
}

func (uc *FetchHistoryUseCase) Execute(ctx context.Context, in FetchHistoryInput) (*History, error) {
	if in.ViewerID == "" {
		return nil, validationErr(chat.ErrMissingParticipant)
	}
	if in.ConversationID == "" {
		return nil, notFoundErr("conversation", in.ConversationID)
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundErr("conversation", in.ConversationID)
	}
	if err != nil {
		return nil, persistenceErr(err)
	}

	contactID, err := conv.ContactOf(in.ViewerID)
	if err != nil {
		return nil, validationErr(err)
	}
	contact, err := uc.Participants.FindByID(ctx, contactID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundErr("participant", contactID)
	}
	if err != nil {
		return nil, persistenceErr(err)
	}

	msgs, err := uc.Repo.GetMessagesByConversation(ctx, conv.ID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	h := &History{
		ConversationID: conv.ID,
		Contact:        *contact,
		ContactStatus:  contact.Status,
		Messages:       make([]HistoryMessage, 0, len(msgs)),
	}
	if !contact.LastSeen.IsZero() {
		h.LastSeenText = presence.RelativeTime(uc.now(), contact.LastSeen)
	}
	for _, m := range msgs {
		name := contact.Name
		if m.SenderID == in.ViewerID {
			name = OwnSenderName
		}
		h.Messages = append(h.Messages, HistoryMessage{
			Message:     m,
			SenderName:  name,
			DisplayTime: presence.ClockTime(m.CreatedAt, uc.Location),
		})
	}
	return h, nil
}

func (uc *FetchHistoryUseCase) now() time.Time {
	if uc.Now == nil {
		return time.Now()
	}
	return uc.Now()
}
