package usecase

import (
	"context"
	"errors"
	"strings"

	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

var errMissingEmail = errors.New("email is required")

type LoginInput struct {
	Email string
}

// LoginUseCase resolves a participant record by email.
type LoginUseCase struct {
	Participants userRepository.ParticipantRepository
}

func NewLoginUseCase(participants userRepository.ParticipantRepository) *LoginUseCase {
	return &LoginUseCase{Participants: participants}
}

func (uc *LoginUseCase) Execute(ctx context.Context, in LoginInput) (*chat.Participant, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, validationErr(errMissingEmail)
	}
	p, err := uc.Participants.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundErr("participant", email)
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	return p, nil
}
