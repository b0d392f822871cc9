package timeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"duochat/internal/infrastructure/realtime"
	"duochat/internal/pkg/chat/application/attachment"
	"duochat/internal/pkg/chat/application/presence"
	"duochat/internal/pkg/chat/application/usecase"
)

var (
	ErrNotOpen      = errors.New("timeline: conversation is not open")
	ErrEmptyContent = errors.New("timeline: nothing to send")
	ErrNoSuchEntry  = errors.New("timeline: no such entry")
	ErrNotFailed    = errors.New("timeline: entry is not failed")
	ErrStopped      = errors.New("timeline: store stopped")
)

const (
	DefaultEchoWindow = 10 * time.Second
	defaultEventQueue = 256
	defaultChanges    = 64
	appendTimeout     = 15 * time.Second
)

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }
func WithLocation(loc *time.Location) Option { return func(s *Store) { s.loc = loc } }
func WithEchoWindow(d time.Duration) Option { return func(s *Store) { s.echoWindow = d } }
func WithEventQueue(n int) Option { return func(s *Store) { s.queue = n } }
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

type event func()

// sendJob is one append waiting in a conversation's outbox.
type sendJob struct {
	localID string
	content string
}

// outbox runs the appends of one conversation strictly one after another,
// so persist and publish order follow send order.
type outbox struct {
	queue   []sendJob
	running bool
}

type openConversation struct {
	tl   Timeline
	sub  Subscription
	stop chan struct{}
}

// Store reconciles snapshots, optimistic sends and pushes into one ordered,
// de-duplicated timeline per open conversation. Run must be running for any
// other method to make progress.
type Store struct {
	gw     Gateway
	push   PushChannel
	viewer Viewer

	now        func() time.Time
	loc        *time.Location
	echoWindow time.Duration
	queue      int
	log        zerolog.Logger

	events  chan event
	changes chan string
	done    chan struct{}

	// owned by the Run goroutine
	open map[string]*openConversation

	outMu    sync.Mutex
	outboxes map[string]*outbox
}

func NewStore(gw Gateway, push PushChannel, viewer Viewer, opts ...Option) *Store {
	s := &Store{
		gw:         gw,
		push:       push,
		viewer:     viewer,
		now:        time.Now,
		echoWindow: DefaultEchoWindow,
		queue:      defaultEventQueue,
		log:        zerolog.Nop(),
		changes:    make(chan string, defaultChanges),
		done:       make(chan struct{}),
		open:       make(map[string]*openConversation),
		outboxes:   make(map[string]*outbox),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(chan event, s.queue)
	return s
}

// Run applies events until ctx ends, then leaves every room.
func (s *Store) Run(ctx context.Context) error {
	defer func() {
		close(s.done)
		for id, oc := range s.open {
			s.release(id, oc)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			ev()
		}
	}
}

// Changes signals the id of every conversation whose timeline changed.
// Signals are dropped while the channel is full.
func (s *Store) Changes() <-chan string { return s.changes }

// Open fetches the history, joins the room and replaces any previous
// timeline of the conversation.
func (s *Store) Open(ctx context.Context, conversationID string) error {
	h, err := s.gw.FetchHistory(ctx, conversationID, s.viewer.ID)
	if err != nil {
		return err
	}
	sub, err := s.push.Join(ctx, conversationID)
	if err != nil {
		return err
	}

	oc := &openConversation{
		tl: Timeline{
			ConversationID: conversationID,
			Contact:        h.Contact,
			ContactStatus:  h.ContactStatus,
			LastSeenText:   h.LastSeenText,
			Entries:        historyEntries(h),
		},
		sub:  sub,
		stop: make(chan struct{}),
	}
	err = s.do(ctx, func() error {
		if prev, ok := s.open[conversationID]; ok {
			s.release(conversationID, prev)
		}
		s.open[conversationID] = oc
		s.changed(conversationID)
		return nil
	})
	if err != nil {
		_ = sub.Close()
		return err
	}
	go s.forward(conversationID, oc)
	return nil
}

// Close leaves the room and discards the timeline.
func (s *Store) Close(ctx context.Context, conversationID string) error {
	return s.do(ctx, func() error {
		oc, ok := s.open[conversationID]
		if !ok {
			return ErrNotOpen
		}
		delete(s.open, conversationID)
		s.changed(conversationID)
		return s.release(conversationID, oc)
	})
}

// Send inserts an optimistic entry and queues the append. Appends of one
// conversation run in send order. With an attachment, text becomes its
// caption. The returned local id identifies the entry for Retry and Discard.
func (s *Store) Send(ctx context.Context, conversationID, text string, att *Attachment) (string, error) {
	content := text
	if att != nil {
		encoded, err := attachment.Encode(att.Kind, att.Data, att.Name, text)
		if err != nil {
			return "", err
		}
		content = encoded
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}

	localID := uuid.NewString()
	err := s.do(ctx, func() error {
		oc, ok := s.open[conversationID]
		if !ok {
			return ErrNotOpen
		}
		now := s.now()
		oc.tl.Entries = append(oc.tl.Entries, Entry{
			LocalID:     localID,
			SenderID:    s.viewer.ID,
			SenderName:  usecase.OwnSenderName,
			Raw:         content,
			Content:     attachment.Decode(content),
			DisplayTime: presence.ClockTime(now, s.loc),
			At:          now,
			State:       Pending,
			Own:         true,
		})
		s.changed(conversationID)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.enqueue(conversationID, sendJob{localID: localID, content: content})
	return localID, nil
}

// Retry re-sends a failed entry.
func (s *Store) Retry(ctx context.Context, conversationID, localID string) error {
	var content string
	err := s.do(ctx, func() error {
		e, err := s.failedEntry(conversationID, localID)
		if err != nil {
			return err
		}
		e.State = Pending
		content = e.Raw
		s.changed(conversationID)
		return nil
	})
	if err != nil {
		return err
	}
	s.enqueue(conversationID, sendJob{localID: localID, content: content})
	return nil
}

// Discard removes a failed entry.
func (s *Store) Discard(ctx context.Context, conversationID, localID string) error {
	return s.do(ctx, func() error {
		if _, err := s.failedEntry(conversationID, localID); err != nil {
			return err
		}
		oc := s.open[conversationID]
		oc.tl.Entries = removeEntry(oc.tl.Entries, func(e *Entry) bool { return e.LocalID == localID })
		s.changed(conversationID)
		return nil
	})
}

// Timeline returns a copy of an open conversation.
func (s *Store) Timeline(ctx context.Context, conversationID string) (Timeline, error) {
	var out Timeline
	err := s.do(ctx, func() error {
		oc, ok := s.open[conversationID]
		if !ok {
			return ErrNotOpen
		}
		out = oc.tl.clone()
		return nil
	})
	return out, err
}

func (s *Store) enqueue(conversationID string, job sendJob) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	ob, ok := s.outboxes[conversationID]
	if !ok {
		ob = &outbox{}
		s.outboxes[conversationID] = ob
	}
	ob.queue = append(ob.queue, job)
	if !ob.running {
		ob.running = true
		go s.drain(conversationID, ob)
	}
}

func (s *Store) drain(conversationID string, ob *outbox) {
	for {
		s.outMu.Lock()
		if len(ob.queue) == 0 {
			ob.running = false
			delete(s.outboxes, conversationID)
			s.outMu.Unlock()
			return
		}
		job := ob.queue[0]
		ob.queue = ob.queue[1:]
		s.outMu.Unlock()

		s.deliver(conversationID, job)
	}
}

// deliver appends one message, reconciles the optimistic entry if the
// conversation is still open and announces the message to the room. A
// failed write is never published; a successful one is published even
// when the view closed in the meantime.
func (s *Store) deliver(conversationID string, job sendJob) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	msg, err := s.gw.AppendMessage(ctx, conversationID, s.viewer.ID, job.content)
	cancel()

	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Str("local_id", job.localID).Msg("append failed")
		_ = s.do(context.Background(), func() error {
			oc, ok := s.open[conversationID]
			if !ok {
				return ErrNotOpen
			}
			if e := findEntry(oc.tl.Entries, func(e *Entry) bool { return e.LocalID == job.localID }); e != nil {
				e.State = Failed
				s.changed(conversationID)
			}
			return nil
		})
		return
	}

	env := realtime.Envelope{
		ConversationID:    conversationID,
		SenderDisplayName: s.viewer.Name,
		Content:           msg.Content,
		DisplayTime:       presence.ClockTime(msg.CreatedAt, s.loc),
		SenderID:          s.viewer.ID,
		MessageID:         msg.ID,
	}

	var sub Subscription
	_ = s.do(context.Background(), func() error {
		oc, ok := s.open[conversationID]
		if !ok {
			return ErrNotOpen
		}
		sub = oc.sub
		if findEntry(oc.tl.Entries, func(e *Entry) bool { return e.LocalID == job.localID }) == nil {
			return ErrNoSuchEntry
		}

		// a push for this message may already be in place; keep the local entry
		oc.tl.Entries = removeEntry(oc.tl.Entries, func(o *Entry) bool {
			return o.LocalID == "" && o.MessageID == msg.ID
		})
		e := findEntry(oc.tl.Entries, func(e *Entry) bool { return e.LocalID == job.localID })
		e.MessageID = msg.ID
		e.At = msg.CreatedAt
		e.DisplayTime = env.DisplayTime
		e.State = Confirmed
		orderEntries(oc.tl.Entries)
		s.changed(conversationID)
		return nil
	})

	var perr error
	if sub != nil {
		perr = sub.Publish(env)
	} else {
		pctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		perr = s.push.Publish(pctx, conversationID, env)
		cancel()
	}
	if perr != nil {
		s.log.Warn().Err(perr).Str("conversation_id", conversationID).Str("message_id", env.MessageID).Msg("publish failed")
	}
}

// forward moves pushes from the subscription into the event loop.
func (s *Store) forward(conversationID string, oc *openConversation) {
	envs := oc.sub.Envelopes()
	for {
		select {
		case <-oc.stop:
			return
		case <-s.done:
			return
		case env, ok := <-envs:
			if !ok {
				return
			}
			ev := func() {
				if s.open[conversationID] != oc {
					return
				}
				if s.applyPush(oc, env) {
					s.changed(conversationID)
				}
			}
			select {
			case s.events <- ev:
			case <-oc.stop:
				return
			case <-s.done:
				return
			}
		}
	}
}

// applyPush merges one pushed envelope. It reports whether the timeline changed.
func (s *Store) applyPush(oc *openConversation, env realtime.Envelope) bool {
	if env.MessageID != "" {
		if findEntry(oc.tl.Entries, func(e *Entry) bool { return e.MessageID == env.MessageID }) != nil {
			return false
		}
	}

	fromViewer := env.SenderID == s.viewer.ID || (env.SenderID == "" && env.SenderDisplayName == s.viewer.Name)
	if fromViewer && env.MessageID == "" {
		now := s.now()
		echo := findEntry(oc.tl.Entries, func(e *Entry) bool {
			return e.LocalID != "" && !e.echoed && e.Raw == env.Content && now.Sub(e.At) <= s.echoWindow
		})
		if echo != nil {
			echo.echoed = true
			return false
		}
	}

	name := env.SenderDisplayName
	if fromViewer {
		name = usecase.OwnSenderName
	}
	oc.tl.Entries = append(oc.tl.Entries, Entry{
		MessageID:   env.MessageID,
		SenderID:    env.SenderID,
		SenderName:  name,
		Raw:         env.Content,
		Content:     attachment.Decode(env.Content),
		DisplayTime: env.DisplayTime,
		At:          s.now(),
		State:       Confirmed,
		Own:         fromViewer,
	})
	orderEntries(oc.tl.Entries)
	return true
}

func (s *Store) failedEntry(conversationID, localID string) (*Entry, error) {
	oc, ok := s.open[conversationID]
	if !ok {
		return nil, ErrNotOpen
	}
	e := findEntry(oc.tl.Entries, func(e *Entry) bool { return e.LocalID == localID })
	if e == nil {
		return nil, ErrNoSuchEntry
	}
	if e.State != Failed {
		return nil, fmt.Errorf("%w: %s", ErrNotFailed, e.State)
	}
	return e, nil
}

func (s *Store) release(conversationID string, oc *openConversation) error {
	close(oc.stop)
	err := oc.sub.Close()
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("leave room failed")
	}
	return err
}

// do runs fn on the loop and waits for its result.
func (s *Store) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	ev := func() { res <- fn() }
	select {
	case s.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
	select {
	case err := <-res:
		return err
	case <-s.done:
		return ErrStopped
	}
}

func (s *Store) changed(conversationID string) {
	select {
	case s.changes <- conversationID:
	default:
	}
}

// orderEntries keeps confirmed entries ordered by creation instant, ties in
// arrival order, followed by pending and failed entries in send order.
func orderEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ci, cj := entries[i].State == Confirmed, entries[j].State == Confirmed
		if ci != cj {
			return ci
		}
		return ci && entries[i].At.Before(entries[j].At)
	})
}

func findEntry(entries []Entry, match func(*Entry) bool) *Entry {
	for i := range entries {
		if match(&entries[i]) {
			return &entries[i]
		}
	}
	return nil
}

func removeEntry(entries []Entry, match func(*Entry) bool) []Entry {
	out := entries[:0]
	for i := range entries {
		if !match(&entries[i]) {
			out = append(out, entries[i])
		}
	}
	return out
}
