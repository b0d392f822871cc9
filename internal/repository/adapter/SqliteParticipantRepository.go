package adapter

import (
	"context"
	"database/sql"
	"errors"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	chatrepo "duochat/internal/pkg/chat/persistence/repository/port"
	repository "duochat/internal/repository/port"

	"github.com/google/uuid"
)

type SqliteParticipantRepository struct {
	db *sql.DB
}

func NewSqliteParticipantRepository(db *sql.DB) *SqliteParticipantRepository {
	return &SqliteParticipantRepository{db: db}
}

var _ repository.ParticipantRepository = (*SqliteParticipantRepository)(nil)

const sqliteParticipantColumns = `
	p.id, p.name, p.last_name, p.email, p.phone, p.photo, s.value, p.last_seen
	FROM participant p
	LEFT JOIN presence_status s ON s.id = p.status_id`

func (r *SqliteParticipantRepository) Create(ctx context.Context, p chat.Participant) (string, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	var lastSeen *int64
	if !p.LastSeen.IsZero() {
		ns := p.LastSeen.UnixNano()
		lastSeen = &ns
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO participant (id, status_id, name, last_name, email, phone, photo, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, statusID(p.Status), p.Name, p.LastName, p.Email, p.Phone, p.Photo, lastSeen)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SqliteParticipantRepository) FindByID(ctx context.Context, id string) (*chat.Participant, error) {
	return r.findOne(ctx, "SELECT"+sqliteParticipantColumns+" WHERE p.id = ?", id)
}

func (r *SqliteParticipantRepository) FindByEmail(ctx context.Context, email string) (*chat.Participant, error) {
	return r.findOne(ctx, "SELECT"+sqliteParticipantColumns+" WHERE lower(p.email) = lower(?)", email)
}

func (r *SqliteParticipantRepository) Update(ctx context.Context, id string, u chat.ProfileUpdate) (*chat.Participant, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE participant
		SET name      = COALESCE(?, name),
		    last_name = COALESCE(?, last_name),
		    phone     = COALESCE(?, phone),
		    photo     = COALESCE(?, photo),
		    status_id = COALESCE(?, status_id)
		WHERE id = ?
	`, u.Name, u.LastName, u.Phone, u.Photo, statusIDPtr(u.Status), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, chatrepo.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *SqliteParticipantRepository) UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error {
	ns := lastSeen.UnixNano()
	res, err := r.db.ExecContext(ctx, `
		UPDATE participant
		SET status_id = ?, last_seen = MAX(COALESCE(last_seen, ?), ?)
		WHERE id = ?
	`, statusID(status), ns, ns, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chatrepo.ErrNotFound
	}
	return nil
}

func (r *SqliteParticipantRepository) findOne(ctx context.Context, query string, arg string) (*chat.Participant, error) {
	var (
		p        chat.Participant
		status   *string
		lastSeen *int64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Name, &p.LastName, &p.Email, &p.Phone, &p.Photo, &status, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chatrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = statusFromValue(status)
	if lastSeen != nil {
		p.LastSeen = time.Unix(0, *lastSeen).UTC()
	}
	return &p, nil
}
