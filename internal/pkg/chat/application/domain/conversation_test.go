package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationRejectsSameParticipant(t *testing.T) {
	_, err := NewConversation("u1", "u1", time.Now())
	assert.ErrorIs(t, err, ErrSameParticipant)

	_, err = NewConversation("", "u2", time.Now())
	assert.ErrorIs(t, err, ErrMissingParticipant)
}

func TestContactOfIsSymmetric(t *testing.T) {
	a, b := "alice", "bob"
	for _, conv := range []Conversation{
		{ID: "c1", FirstParticipantID: a, SecondParticipantID: b},
		{ID: "c2", FirstParticipantID: b, SecondParticipantID: a},
	} {
		got, err := conv.ContactOf(a)
		require.NoError(t, err)
		assert.Equal(t, b, got, "conversation %s", conv.ID)

		got, err = conv.ContactOf(b)
		require.NoError(t, err)
		assert.Equal(t, a, got, "conversation %s", conv.ID)
	}
}

func TestContactOfOutsider(t *testing.T) {
	conv := Conversation{ID: "c1", FirstParticipantID: "a", SecondParticipantID: "b"}
	_, err := conv.ContactOf("mallory")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestPostMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Chat{Conversation: Conversation{ID: "c1", FirstParticipantID: "a", SecondParticipantID: "b"}}

	msg, err := c.PostMessage("b", "hi", now)
	require.NoError(t, err)
	assert.Equal(t, "c1", msg.ConversationID)
	assert.Equal(t, now, msg.CreatedAt)

	_, err = c.PostMessage("z", "hi", now)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = c.PostMessage("a", "   ", now)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
