package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "duochat/internal/pkg/chat/application/domain"
)

func TestAppendMessageUsesServerClock(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	conv := f.conversation(t, ana, bob, time.Now())
	now := time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC)
	q := &fakeQueue{}

	uc := NewAppendMessageUseCase(f.chats, q, zerolog.Nop())
	uc.Now = fixedClock(now)

	msg, err := uc.Execute(context.Background(), AppendMessageInput{ConversationID: conv, SenderID: bob, Content: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.True(t, now.Equal(msg.CreatedAt))

	stored, err := f.chats.GetMessagesByConversation(context.Background(), conv)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, msg.ID, stored[0].ID)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, TouchPresenceTaskType, q.tasks[0].Type)
	assert.Equal(t, "chat", q.opts[0].Queue)
	var p TouchPresencePayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload, &p))
	assert.Equal(t, bob, p.ParticipantID)
	assert.True(t, now.Equal(p.At))
}

func TestAppendMessageRejectsOutsiderWithoutWriting(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	eve := f.participant(t, "eve", time.Time{})
	conv := f.conversation(t, ana, bob, time.Now())
	q := &fakeQueue{}

	_, err := NewAppendMessageUseCase(f.chats, q, zerolog.Nop()).Execute(context.Background(), AppendMessageInput{ConversationID: conv, SenderID: eve, Content: "hi"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, chat.ErrNotParticipant)

	stored, err := f.chats.GetMessagesByConversation(context.Background(), conv)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, q.tasks)
}

func TestAppendMessageValidation(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	conv := f.conversation(t, ana, bob, time.Now())
	uc := NewAppendMessageUseCase(f.chats, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := uc.Execute(ctx, AppendMessageInput{ConversationID: conv, SenderID: ana, Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	_, err = uc.Execute(ctx, AppendMessageInput{ConversationID: "missing", SenderID: ana, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessagePersistenceFailure(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	conv := f.conversation(t, ana, bob, time.Now())

	_, err := NewAppendMessageUseCase(failingChatRepo{f.chats}, nil, zerolog.Nop()).Execute(context.Background(), AppendMessageInput{ConversationID: conv, SenderID: ana, Content: "hi"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestAppendMessageSurvivesEnqueueFailure(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	conv := f.conversation(t, ana, bob, time.Now())
	rec := &recorder{}

	uc := NewAppendMessageUseCase(f.chats, &fakeQueue{err: errors.New("redis down")}, zerolog.Nop())
	uc.Recorder = rec
	msg, err := uc.Execute(context.Background(), AppendMessageInput{ConversationID: conv, SenderID: ana, Content: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, []string{TouchPresenceTaskType}, rec.failed)
}

type recorder struct {
	failed []string
}

func (r *recorder) RecordTask(taskType string, err error) {
	if err != nil {
		r.failed = append(r.failed, taskType)
	}
}
