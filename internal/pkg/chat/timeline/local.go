package timeline

import (
	"context"

	"duochat/internal/infrastructure/realtime"
	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
)

// LocalGateway runs the use cases in-process.
type LocalGateway struct {
	Fetch  *usecase.FetchHistoryUseCase
	Append *usecase.AppendMessageUseCase
}

var _ Gateway = (*LocalGateway)(nil)

func (g *LocalGateway) FetchHistory(ctx context.Context, conversationID, viewerID string) (*usecase.History, error) {
	return g.Fetch.Execute(ctx, usecase.FetchHistoryInput{ConversationID: conversationID, ViewerID: viewerID})
}

func (g *LocalGateway) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*chat.Message, error) {
	return g.Append.Execute(ctx, usecase.AppendMessageInput{ConversationID: conversationID, SenderID: senderID, Content: content})
}

// LocalChannel subscribes to an in-process hub through mailboxes.
type LocalChannel struct {
	Hub    *realtime.Hub
	Buffer int
	Policy realtime.OverflowPolicy
}

var _ PushChannel = (*LocalChannel)(nil)

func (c *LocalChannel) Join(_ context.Context, conversationID string) (Subscription, error) {
	mb := realtime.NewMailbox(c.Buffer, c.Policy)
	c.Hub.Join(conversationID, mb)
	return &localSubscription{hub: c.Hub, conversationID: conversationID, mailbox: mb}, nil
}

func (c *LocalChannel) Publish(_ context.Context, conversationID string, env realtime.Envelope) error {
	c.Hub.Publish(conversationID, env, "")
	return nil
}

type localSubscription struct {
	hub            *realtime.Hub
	conversationID string
	mailbox        *realtime.Mailbox
}

func (s *localSubscription) Envelopes() <-chan realtime.Envelope { return s.mailbox.C() }

func (s *localSubscription) Publish(env realtime.Envelope) error {
	s.hub.Publish(s.conversationID, env, s.mailbox.ID())
	return nil
}

func (s *localSubscription) Close() error {
	s.hub.Leave(s.conversationID, s.mailbox)
	s.mailbox.Close()
	return nil
}
