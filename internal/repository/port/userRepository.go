package repository

import (
	"context"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
)

// ParticipantRepository is the contract for participant (profile) records.
// Lookups of absent rows return repository.ErrNotFound from the chat port.
type ParticipantRepository interface {
	Create(ctx context.Context, p chat.Participant) (string, error)
	FindByID(ctx context.Context, id string) (*chat.Participant, error)
	FindByEmail(ctx context.Context, email string) (*chat.Participant, error)
	Update(ctx context.Context, id string, u chat.ProfileUpdate) (*chat.Participant, error)
	UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error
}
