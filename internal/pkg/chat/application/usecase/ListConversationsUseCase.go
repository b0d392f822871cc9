package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/presence"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

// ChatListOrder decides how a chat list is sorted.
type ChatListOrder int

const (
	// OrderByRecentActivity puts the conversation with the newest message first.
	// A conversation without messages counts as active at its creation instant.
	OrderByRecentActivity ChatListOrder = iota
	// OrderByConversationID sorts ascending by conversation id.
	OrderByConversationID
)

// ParseChatListOrder maps "recent" and "id"; anything else is an error.
func ParseChatListOrder(s string) (ChatListOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return OrderByRecentActivity, nil
	case "id":
		return OrderByConversationID, nil
	default:
		return OrderByRecentActivity, fmt.Errorf("unknown chat list order %q", s)
	}
}

type ListConversationsInput struct {
	UserID string
}

// ListConversationsUseCase builds the chat list of one participant.
type ListConversationsUseCase struct {
	Repo         repository.ChatRepository
	Participants userRepository.ParticipantRepository
	Order        ChatListOrder
	Location     *time.Location
}

func NewListConversationsUseCase(repo repository.ChatRepository, participants userRepository.ParticipantRepository, order ChatListOrder) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Participants: participants, Order: order}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]chat.ConversationSummary, error) {
	if in.UserID == "" {
		return nil, validationErr(chat.ErrMissingParticipant)
	}

	convs, err := uc.Repo.ListConversationsByParticipant(ctx, in.UserID)
	if err != nil {
		return nil, persistenceErr(err)
	}

	summaries := make([]chat.ConversationSummary, 0, len(convs))
	activity := make(map[string]time.Time, len(convs))
	for _, conv := range convs {
		contactID, err := conv.ContactOf(in.UserID)
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
		last, err := uc.Repo.GetLastMessage(ctx, conv.ID)
		if err != nil {
			return nil, persistenceErr(err)
		}

		s := chat.ConversationSummary{ID: conv.ID, Contact: *contact, LastMessage: last}
		activity[conv.ID] = conv.CreatedAt
		if last != nil {
			s.LastMessageTime = presence.ClockTime(last.CreatedAt, uc.Location)
			activity[conv.ID] = last.CreatedAt
		}
		summaries = append(summaries, s)
	}

	uc.sort(summaries, activity)
	return summaries, nil
}

func (uc *ListConversationsUseCase) sort(summaries []chat.ConversationSummary, activity map[string]time.Time) {
	switch uc.Order {
	case OrderByConversationID:
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	default:
		sort.Slice(summaries, func(i, j int) bool {
			ai, aj := activity[summaries[i].ID], activity[summaries[j].ID]
			if !ai.Equal(aj) {
				return ai.After(aj)
			}
			return summaries[i].ID < summaries[j].ID
		})
	}
}
