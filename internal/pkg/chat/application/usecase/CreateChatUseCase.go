package usecase

import (
	"context"
	"errors"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

// CreateChatInput names the two participants of a new conversation.
type CreateChatInput struct {
	FirstParticipantID  string
	SecondParticipantID string
}

// CreateChatUseCase opens a conversation between two existing participants.
// A pair that already shares a conversation gets that conversation back.
type CreateChatUseCase struct {
	Repo         repository.ChatRepository
	Participants userRepository.ParticipantRepository
	Now          func() time.Time
}

func NewCreateChatUseCase(repo repository.ChatRepository, participants userRepository.ParticipantRepository) *CreateChatUseCase {
	return &CreateChatUseCase{Repo: repo, Participants: participants, Now: time.Now}
}

// Execute returns the conversation and whether it was created by this call.
func (uc *CreateChatUseCase) Execute(ctx context.Context, in CreateChatInput) (*chat.Conversation, bool, error) {
	now := time.Now()
	if uc.Now != nil {
		now = uc.Now()
	}
	conv, err := chat.NewConversation(in.FirstParticipantID, in.SecondParticipantID, now)
	if err != nil {
		return nil, false, validationErr(err)
	}

	for _, id := range []string{in.FirstParticipantID, in.SecondParticipantID} {
		_, err := uc.Participants.FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, notFoundErr("participant", id)
		}
		if err != nil {
			return nil, false, persistenceErr(err)
		}
	}

	existing, err := uc.Repo.ListConversationsByParticipant(ctx, in.FirstParticipantID)
	if err != nil {
		return nil, false, persistenceErr(err)
	}
	for _, c := range existing {
		if c.HasParticipant(in.SecondParticipantID) {
			return &c, false, nil
		}
	}

	id, err := uc.Repo.CreateConversation(ctx, *conv)
	if err != nil {
		return nil, false, persistenceErr(err)
	}
	conv.ID = id
	return conv, true, nil
}
