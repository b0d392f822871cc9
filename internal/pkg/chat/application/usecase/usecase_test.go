package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"duochat/internal/infrastructure/database"
	qport "duochat/internal/infrastructure/queue/port"
	chat "duochat/internal/pkg/chat/application/domain"
	chatAdapter "duochat/internal/pkg/chat/persistence/repository/adapter"
	userAdapter "duochat/internal/repository/adapter"
)

type fixture struct {
	chats        *chatAdapter.SqliteChatRepository
	participants *userAdapter.SqliteParticipantRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &fixture{
		chats:        chatAdapter.NewSqliteChatRepository(db),
		participants: userAdapter.NewSqliteParticipantRepository(db),
	}
}

func (f *fixture) participant(t *testing.T, name string, lastSeen time.Time) string {
	t.Helper()
	id, err := f.participants.Create(context.Background(), chat.Participant{
		Name:     name,
		Email:    name + "@example.com",
		Status:   chat.PresenceOffline,
		LastSeen: lastSeen,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) conversation(t *testing.T, first, second string, createdAt time.Time) string {
	t.Helper()
	id, err := f.chats.CreateConversation(context.Background(), chat.Conversation{
		FirstParticipantID:  first,
		SecondParticipantID: second,
		CreatedAt:           createdAt,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) message(t *testing.T, convID, senderID, content string, at time.Time) string {
	t.Helper()
	id, err := f.chats.SaveMessage(context.Background(), chat.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
	})
	require.NoError(t, err)
	return id
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
	opts  []qport.EnqueueOption
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, t)
	q.opts = append(q.opts, opts...)
	return "task-1", nil
}

func (q *fakeQueue) Close() error { return nil }

var errStoreDown = errors.New("store down")

type failingChatRepo struct {
	*chatAdapter.SqliteChatRepository
}

func (failingChatRepo) SaveMessage(context.Context, chat.Message) (string, error) {
	return "", errStoreDown
}

func (failingChatRepo) ListConversationsByParticipant(context.Context, string) ([]chat.Conversation, error) {
	return nil, errStoreDown
}
