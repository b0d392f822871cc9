package adapter

import (
	"context"
	"database/sql"
	"errors"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"

	"github.com/google/uuid"
)

// SqliteChatRepository stores conversations and messages in an embedded
// SQLite database opened by database.OpenSQLite.
type SqliteChatRepository struct {
	db *sql.DB
}

func NewSqliteChatRepository(db *sql.DB) *SqliteChatRepository {
	return &SqliteChatRepository{db: db}
}

var _ repository.ChatRepository = (*SqliteChatRepository)(nil)

func (r *SqliteChatRepository) CreateConversation(ctx context.Context, c chat.Conversation) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation (id, first_participant_id, second_participant_id, created_at)
		VALUES (?, ?, ?, ?)
	`, id, c.FirstParticipantID, c.SecondParticipantID, c.CreatedAt.UnixNano())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SqliteChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_participant_id, second_participant_id, created_at
		FROM conversation
		WHERE id = ?
	`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SqliteChatRepository) ListConversationsByParticipant(ctx context.Context, userID string) ([]chat.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_participant_id, second_participant_id, created_at
		FROM conversation
		WHERE first_participant_id = ? OR second_participant_id = ?
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

func (r *SqliteChatRepository) SaveMessage(ctx context.Context, m chat.Message) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message (id, conversation_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, m.ConversationID, m.SenderID, m.Content, m.CreatedAt.UnixNano())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SqliteChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string) ([]chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM message
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}
	return msgs, rows.Err()
}

func (r *SqliteChatRepository) GetLastMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM message
		WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, conversationID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(s rowScanner) (*chat.Conversation, error) {
	var (
		c         chat.Conversation
		createdAt int64
	)
	if err := s.Scan(&c.ID, &c.FirstParticipantID, &c.SecondParticipantID, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return &c, nil
}

func scanMessage(s rowScanner) (*chat.Message, error) {
	var (
		msg       chat.Message
		createdAt int64
	)
	if err := s.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &createdAt); err != nil {
		return nil, err
	}
	msg.CreatedAt = time.Unix(0, createdAt).UTC()
	return &msg, nil
}
