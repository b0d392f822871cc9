package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "duochat/internal/pkg/chat/application/domain"
)

func summaryIDs(s []chat.ConversationSummary) []string {
	ids := make([]string, len(s))
	for i := range s {
		ids[i] = s[i].ID
	}
	return ids
}

func TestListConversationsOrderedByRecentActivity(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	cy := f.participant(t, "cy", time.Time{})
	dee := f.participant(t, "dee", time.Time{})

	withBob := f.conversation(t, ana, bob, base)
	withCy := f.conversation(t, cy, ana, base)
	withDee := f.conversation(t, ana, dee, base.Add(90*time.Minute)) // empty, created late

	f.message(t, withBob, bob, "old", base.Add(time.Hour))
	f.message(t, withCy, ana, "newest", base.Add(2*time.Hour))

	uc := NewListConversationsUseCase(f.chats, f.participants, OrderByRecentActivity)
	uc.Location = time.UTC
	got, err := uc.Execute(context.Background(), ListConversationsInput{UserID: ana})
	require.NoError(t, err)
	assert.Equal(t, []string{withCy, withDee, withBob}, summaryIDs(got))

	assert.Equal(t, cy, got[0].Contact.ID)
	require.NotNil(t, got[0].LastMessage)
	assert.Equal(t, "newest", got[0].LastMessage.Content)
	assert.Equal(t, "11:00 AM", got[0].LastMessageTime)

	assert.Equal(t, dee, got[1].Contact.ID)
	assert.Nil(t, got[1].LastMessage)
	assert.Empty(t, got[1].LastMessageTime)
}

func TestListConversationsOrderedByID(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})
	bob := f.participant(t, "bob", time.Time{})
	cy := f.participant(t, "cy", time.Time{})
	a := f.conversation(t, ana, bob, time.Now())
	b := f.conversation(t, ana, cy, time.Now())
	f.message(t, a, ana, "x", time.Now())

	got, err := NewListConversationsUseCase(f.chats, f.participants, OrderByConversationID).Execute(context.Background(), ListConversationsInput{UserID: ana})
	require.NoError(t, err)
	ids := summaryIDs(got)
	assert.ElementsMatch(t, []string{a, b}, ids)
	assert.Less(t, ids[0], ids[1])
}

func TestListConversationsEmptyAndFailure(t *testing.T) {
	f := newFixture(t)
	ana := f.participant(t, "ana", time.Time{})

	got, err := NewListConversationsUseCase(f.chats, f.participants, OrderByRecentActivity).Execute(context.Background(), ListConversationsInput{UserID: ana})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NewListConversationsUseCase(failingChatRepo{f.chats}, f.participants, OrderByRecentActivity).Execute(context.Background(), ListConversationsInput{UserID: ana})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestParseChatListOrder(t *testing.T) {
	o, err := ParseChatListOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderByRecentActivity, o)

	o, err = ParseChatListOrder("ID")
	require.NoError(t, err)
	assert.Equal(t, OrderByConversationID, o)

	_, err = ParseChatListOrder("alphabetical")
	assert.Error(t, err)
}
