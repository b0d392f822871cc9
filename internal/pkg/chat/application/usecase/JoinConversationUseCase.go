package usecase

import (
	"context"
	"errors"

	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
)

// JoinConversationInput validates a request to attach a user session to a conversation.
type JoinConversationInput struct {
	ConversationID string
	UserID         string
}

// JoinConversationUseCase ensures the user belongs to the conversation before joining the realtime room.
type JoinConversationUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinConversationUseCase(repo repository.ChatRepository) *JoinConversationUseCase {
	return &JoinConversationUseCase{Repo: repo}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) (*chat.Conversation, error) {
	if in.UserID == "" {
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
	if !conv.HasParticipant(in.UserID) {
		return nil, validationErr(chat.ErrNotParticipant)
	}
	return conv, nil
}
