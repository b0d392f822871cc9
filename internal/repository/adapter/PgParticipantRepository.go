package adapter

import (
	"context"
	"errors"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	chatrepo "duochat/internal/pkg/chat/persistence/repository/port"
	repository "duochat/internal/repository/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgParticipantRepository struct {
	pool *pgxpool.Pool
}

func NewPgParticipantRepository(pool *pgxpool.Pool) *PgParticipantRepository {
	return &PgParticipantRepository{pool: pool}
}

var _ repository.ParticipantRepository = (*PgParticipantRepository)(nil)

const pgParticipantColumns = `
	p.id::text, p.name, p.last_name, p.email, p.phone, p.photo, s.value, p.last_seen
	FROM participant p
	LEFT JOIN presence_status s ON s.id = p.status_id`

func (r *PgParticipantRepository) Create(ctx context.Context, p chat.Participant) (string, error) {
	var lastSeen *time.Time
	if !p.LastSeen.IsZero() {
		lastSeen = &p.LastSeen
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO participant (status_id, name, last_name, email, phone, photo, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`, statusID(p.Status), p.Name, p.LastName, p.Email, p.Phone, p.Photo, lastSeen).Scan(&id)
	return id, err
}

func (r *PgParticipantRepository) FindByID(ctx context.Context, id string) (*chat.Participant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, chatrepo.ErrNotFound
	}
	return r.findOne(ctx, "SELECT"+pgParticipantColumns+" WHERE p.id = $1::uuid", id)
}

func (r *PgParticipantRepository) FindByEmail(ctx context.Context, email string) (*chat.Participant, error) {
	return r.findOne(ctx, "SELECT"+pgParticipantColumns+" WHERE lower(p.email) = lower($1)", email)
}

func (r *PgParticipantRepository) Update(ctx context.Context, id string, u chat.ProfileUpdate) (*chat.Participant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, chatrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE participant
		SET name      = COALESCE($2, name),
		    last_name = COALESCE($3, last_name),
		    phone     = COALESCE($4, phone),
		    photo     = COALESCE($5, photo),
		    status_id = COALESCE($6, status_id)
		WHERE id = $1::uuid
	`, id, u.Name, u.LastName, u.Phone, u.Photo, statusIDPtr(u.Status))
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, chatrepo.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *PgParticipantRepository) UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return chatrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE participant
		SET status_id = $2, last_seen = GREATEST(COALESCE(last_seen, $3), $3)
		WHERE id = $1::uuid
	`, id, statusID(status), lastSeen)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chatrepo.ErrNotFound
	}
	return nil
}

func (r *PgParticipantRepository) findOne(ctx context.Context, query string, arg string) (*chat.Participant, error) {
	var (
		p        chat.Participant
		status   *string
		lastSeen *time.Time
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Name, &p.LastName, &p.Email, &p.Phone, &p.Photo, &status, &lastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chatrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = statusFromValue(status)
	if lastSeen != nil {
		p.LastSeen = lastSeen.UTC()
	}
	return &p, nil
}
