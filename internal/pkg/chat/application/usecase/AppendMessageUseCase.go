package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	qport "duochat/internal/infrastructure/queue/port"
	chat "duochat/internal/pkg/chat/application/domain"
	repository "duochat/internal/pkg/chat/persistence/repository/port"

	"github.com/rs/zerolog"
)

type AppendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
}

// TaskRecorder observes enqueue attempts.
type TaskRecorder interface {
	RecordTask(taskType string, err error)
}

// AppendMessageUseCase persists a message with a server-assigned instant.
// It never notifies other participants; publishing is the caller's job.
// When Queue is set, a presence touch for the sender is enqueued after the write.
type AppendMessageUseCase struct {
	Repo     repository.ChatRepository
	Queue    qport.Client
	Recorder TaskRecorder
	Log      zerolog.Logger
	Now      func() time.Time
}

func NewAppendMessageUseCase(repo repository.ChatRepository, queue qport.Client, log zerolog.Logger) *AppendMessageUseCase {
	return &AppendMessageUseCase{Repo: repo, Queue: queue, Log: log, Now: time.Now}
}

func (uc *AppendMessageUseCase) Execute(ctx context.Context, in AppendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" {
		return nil, notFoundErr("conversation", in.ConversationID)
	}
	if in.SenderID == "" {
		return nil, validationErr(chat.ErrMissingParticipant)
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundErr("conversation", in.ConversationID)
	}
	if err != nil {
		return nil, persistenceErr(err)
	}

	agg := chat.Chat{Conversation: *conv}
	msg, err := agg.PostMessage(in.SenderID, in.Content, uc.now())
	if err != nil {
		return nil, domainErr(err)
	}

	id, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, persistenceErr(err)
	}
	msg.ID = id

	uc.touchPresence(ctx, msg)
	return msg, nil
}

func (uc *AppendMessageUseCase) touchPresence(ctx context.Context, msg *chat.Message) {
	if uc.Queue == nil {
		return
	}
	payload, err := json.Marshal(TouchPresencePayload{ParticipantID: msg.SenderID, At: msg.CreatedAt})
	if err != nil {
		return
	}
	_, err = uc.Queue.Enqueue(ctx, qport.Task{Type: TouchPresenceTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:    "chat",
		MaxRetry: 3,
	})
	if uc.Recorder != nil {
		uc.Recorder.RecordTask(TouchPresenceTaskType, err)
	}
	if err != nil {
		uc.Log.Warn().Err(err).
			Str("message_id", msg.ID).
			Str("sender_id", msg.SenderID).
			Msg("enqueue presence touch failed")
	}
}

func (uc *AppendMessageUseCase) now() time.Time {
	if uc.Now == nil {
		return time.Now()
	}
	return uc.Now()
}
