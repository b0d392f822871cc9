package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

var errEmptyProfileUpdate = errors.New("profile update carries no field")

type UpdateProfileInput struct {
	ParticipantID string
	Fields        chat.ProfileUpdate
}

// UpdateProfileUseCase edits the profile fields of a participant.
type UpdateProfileUseCase struct {
	Participants userRepository.ParticipantRepository
}

func NewUpdateProfileUseCase(participants userRepository.ParticipantRepository) *UpdateProfileUseCase {
	return &UpdateProfileUseCase{Participants: participants}
}

func (uc *UpdateProfileUseCase) Execute(ctx context.Context, in UpdateProfileInput) (*chat.Participant, error) {
	if in.ParticipantID == "" {
		return nil, validationErr(chat.ErrMissingParticipant)
	}
	if in.Fields.Empty() {
		return nil, validationErr(errEmptyProfileUpdate)
	}
	if in.Fields.Name != nil && strings.TrimSpace(*in.Fields.Name) == "" {
		return nil, validationErr(errors.New("name must not be blank"))
	}
	if in.Fields.Status != nil && !in.Fields.Status.Valid() {
		return nil, validationErr(fmt.Errorf("unknown status %q", *in.Fields.Status))
	}

	p, err := uc.Participants.Update(ctx, in.ParticipantID, in.Fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundErr("participant", in.ParticipantID)
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	return p, nil
}
