package usecase

import (
	"context"
	"errors"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

// TouchPresenceTaskType is the queue task that marks a participant active.
const TouchPresenceTaskType = "chat:touch_presence"

// TouchPresencePayload is the JSON payload of TouchPresenceTaskType.
type TouchPresencePayload struct {
	ParticipantID string    `json:"participantId"`
	At            time.Time `json:"at"`
}

type TouchPresenceInput struct {
	ParticipantID string
	At            time.Time
}

// TouchPresenceUseCase marks a participant online as of At.
type TouchPresenceUseCase struct {
	Participants userRepository.ParticipantRepository
}

func NewTouchPresenceUseCase(participants userRepository.ParticipantRepository) *TouchPresenceUseCase {
	return &TouchPresenceUseCase{Participants: participants}
}

func (uc *TouchPresenceUseCase) Execute(ctx context.Context, in TouchPresenceInput) error {
	if in.ParticipantID == "" || in.At.IsZero() {
		return validationErr(chat.ErrMissingParticipant)
	}
	err := uc.Participants.UpdatePresence(ctx, in.ParticipantID, chat.PresenceOnline, in.At)
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundErr("participant", in.ParticipantID)
	}
	if err != nil {
		return persistenceErr(err)
	}
	return nil
}
