package adapter

import chat "duochat/internal/pkg/chat/application/domain"

// Row ids of the presence_status lookup table.
const (
	statusOnlineID  int16 = 1
	statusOfflineID int16 = 2
)

func statusID(s chat.PresenceStatus) int16 {
	if s == chat.PresenceOnline {
		return statusOnlineID
	}
	return statusOfflineID
}

func statusIDPtr(s *chat.PresenceStatus) *int16 {
	if s == nil {
		return nil
	}
	id := statusID(*s)
	return &id
}

func statusFromValue(v *string) chat.PresenceStatus {
	if v != nil && chat.PresenceStatus(*v) == chat.PresenceOnline {
		return chat.PresenceOnline
	}
	return chat.PresenceOffline
}
