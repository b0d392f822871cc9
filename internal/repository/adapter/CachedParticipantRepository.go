package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	cache "duochat/internal/infrastructure/cache/port"
	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/repository/port"

	"github.com/rs/zerolog"
)

const DefaultParticipantTTL = 30 * time.Second

// CachedParticipantRepository reads participants through a cache.
// Writes go to the wrapped repository and then drop the cached record.
// Cache failures degrade to direct reads.
type CachedParticipantRepository struct {
	next  repository.ParticipantRepository
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedParticipantRepository(next repository.ParticipantRepository, c cache.Cache, ttl time.Duration, log zerolog.Logger) *CachedParticipantRepository {
	if ttl <= 0 {
		ttl = DefaultParticipantTTL
	}
	return &CachedParticipantRepository{next: next, cache: c, ttl: ttl, log: log}
}

var _ repository.ParticipantRepository = (*CachedParticipantRepository)(nil)

func participantKey(id string) string { return "participant:" + id }

func (r *CachedParticipantRepository) Create(ctx context.Context, p chat.Participant) (string, error) {
	return r.next.Create(ctx, p)
}

func (r *CachedParticipantRepository) FindByID(ctx context.Context, id string) (*chat.Participant, error) {
	raw, err := r.cache.Get(ctx, participantKey(id))
	if err == nil {
		var p chat.Participant
		if jerr := json.Unmarshal([]byte(raw), &p); jerr == nil {
			return &p, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		r.log.Warn().Err(err).Str("participant_id", id).Msg("participant cache read failed")
	}

	p, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, p)
	return p, nil
}

func (r *CachedParticipantRepository) FindByEmail(ctx context.Context, email string) (*chat.Participant, error) {
	p, err := r.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.store(ctx, p)
	return p, nil
}

func (r *CachedParticipantRepository) Update(ctx context.Context, id string, u chat.ProfileUpdate) (*chat.Participant, error) {
	p, err := r.next.Update(ctx, id, u)
	r.invalidate(ctx, id)
	return p, err
}

func (r *CachedParticipantRepository) UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error {
	err := r.next.UpdatePresence(ctx, id, status, lastSeen)
	r.invalidate(ctx, id)
	return err
}

func (r *CachedParticipantRepository) store(ctx context.Context, p *chat.Participant) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, participantKey(p.ID), string(raw), r.ttl); err != nil {
		r.log.Warn().Err(err).Str("participant_id", p.ID).Msg("participant cache write failed")
	}
}

func (r *CachedParticipantRepository) invalidate(ctx context.Context, id string) {
	if _, err := r.cache.Del(ctx, participantKey(id)); err != nil {
		r.log.Warn().Err(err).Str("participant_id", id).Msg("participant cache invalidation failed")
	}
}
