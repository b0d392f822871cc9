package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	qport "duochat/internal/infrastructure/queue/port"
	"duochat/internal/pkg/chat/application/usecase"
)

// RegisterTouchPresenceTask binds the presence touch handler to the provided server.
func RegisterTouchPresenceTask(srv qport.Server, uc *usecase.TouchPresenceUseCase) {
	srv.Register(usecase.TouchPresenceTaskType, TouchPresenceHandler(uc))
}

// TouchPresenceHandler decodes the payload and runs the use case.
// Payloads that can never succeed are not retried.
func TouchPresenceHandler(uc *usecase.TouchPresenceUseCase) qport.Handler {
	return func(ctx context.Context, t qport.Task) error {
		var p usecase.TouchPresencePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("touch presence: decode payload: %v: %w", err, asynq.SkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		err := uc.Execute(ctx, usecase.TouchPresenceInput{ParticipantID: p.ParticipantID, At: p.At})
		if errors.Is(err, usecase.ErrValidation) || errors.Is(err, usecase.ErrNotFound) {
			return fmt.Errorf("touch presence: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}
}
