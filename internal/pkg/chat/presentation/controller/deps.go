package controller

import (
	"time"

	"github.com/rs/zerolog"

	qport "duochat/internal/infrastructure/queue/port"
	"duochat/internal/infrastructure/realtime"
	"duochat/internal/pkg/chat/application/usecase"
	repository "duochat/internal/pkg/chat/persistence/repository/port"
	userRepository "duochat/internal/repository/port"
)

// Deps carries what the controllers build their use cases from.
type Deps struct {
	Chats        repository.ChatRepository
	Participants userRepository.ParticipantRepository
	Queue        qport.Client // nil disables background presence touches
	Recorder     usecase.TaskRecorder
	Hub          *realtime.Hub
	HubBuffer    int
	Order        usecase.ChatListOrder
	Location     *time.Location
	Log          zerolog.Logger
}
