package usecase

import (
	"errors"
	"fmt"

	chat "duochat/internal/pkg/chat/application/domain"
)

var (
	// ErrNotFound indicates a referenced conversation or participant is absent
	ErrNotFound = errors.New("chat use case: not found")
	// ErrValidation indicates the request was rejected before any write
	ErrValidation = errors.New("chat use case: validation failed")
	// ErrPersistence indicates an infrastructure/repository failure inside a use case
	ErrPersistence = errors.New("chat use case: persistence error")
)

func persistenceErr(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func validationErr(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func notFoundErr(what, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, what, id)
}

// domainErr classifies errors raised by the chat aggregate.
func domainErr(err error) error {
	switch {
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMissingParticipant),
		errors.Is(err, chat.ErrSameParticipant),
		errors.Is(err, chat.ErrInvalidConversation):
		return validationErr(err)
	default:
		return persistenceErr(err)
	}
}
