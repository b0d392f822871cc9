package chat

import "time"

// Conversation represents a 1:1 thread between two distinct participants
type Conversation struct {
	ID                  string    `db:"id"`
	CreatedAt           time.Time `db:"created_at"`
	FirstParticipantID  string    `db:"first_participant_id"`
	SecondParticipantID string    `db:"second_participant_id"`
}

// NewConversation validates the participant pair and stamps the creation time.
func NewConversation(firstID, secondID string, now time.Time) (*Conversation, error) {
	if firstID == "" || secondID == "" {
		return nil, ErrMissingParticipant
	}
	if firstID == secondID {
		return nil, ErrSameParticipant
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &Conversation{
		CreatedAt:           now.UTC(),
		FirstParticipantID:  firstID,
		SecondParticipantID: secondID,
	}, nil
}

// HasParticipant tells whether userID occupies either slot.
func (c Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.FirstParticipantID == userID || c.SecondParticipantID == userID)
}

// ContactOf returns the participant id that is not viewerID, regardless of
// which slot the viewer occupies.
func (c Conversation) ContactOf(viewerID string) (string, error) {
	switch viewerID {
	case "":
		return "", ErrMissingParticipant
	case c.FirstParticipantID:
		return c.SecondParticipantID, nil
	case c.SecondParticipantID:
		return c.FirstParticipantID, nil
	default:
		return "", ErrNotParticipant
	}
}
