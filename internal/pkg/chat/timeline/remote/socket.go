package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"duochat/internal/infrastructure/realtime"
	"duochat/internal/pkg/chat/timeline"
)

var ErrSocketClosed = errors.New("remote: socket closed")

const (
	writeWait    = 10 * time.Second
	roomBuffer   = 64
	joinDeadline = 10 * time.Second
)

// SocketChannel multiplexes room subscriptions over one websocket.
type SocketChannel struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once

	mu      sync.Mutex
	rooms   map[string]*socketSubscription
	pending map[string]chan realtime.Frame // conversationID -> join/leave reply
	closed  bool
	done    chan struct{}
}

// DialSocket connects to the websocket endpoint, e.g.
// "ws://localhost:8080/api/v1/chat/ws", as userID and waits for the
// connected acknowledgement.
func DialSocket(ctx context.Context, endpoint, userID string, log zerolog.Logger) (*SocketChannel, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	var hello realtime.Frame
	_ = conn.SetReadDeadline(time.Now().Add(joinDeadline))
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != realtime.FrameConnected {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %v", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	s := &SocketChannel{
		conn:    conn,
		log:     log,
		rooms:   make(map[string]*socketSubscription),
		pending: make(map[string]chan realtime.Frame),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

var _ timeline.PushChannel = (*SocketChannel)(nil)

// Join sends a join frame and waits for the server's answer.
func (s *SocketChannel) Join(ctx context.Context, conversationID string) (timeline.Subscription, error) {
	sub := &socketSubscription{ch: s, conversationID: conversationID, envs: make(chan realtime.Envelope, roomBuffer)}
	reply, err := s.request(ctx, realtime.Frame{Type: realtime.FrameJoin, ConversationID: conversationID}, func() {
		s.rooms[conversationID] = sub
	})
	if err != nil {
		return nil, err
	}
	if reply.Type != realtime.FrameJoined {
		s.mu.Lock()
		delete(s.rooms, conversationID)
		s.mu.Unlock()
		return nil, fmt.Errorf("join %s: %s: %s", conversationID, reply.Code, reply.Error)
	}
	return sub, nil
}

// Publish announces env to a room. Without a live subscription the
// socket joins the room for the duration of the publish; envelopes
// arriving meanwhile are dropped.
func (s *SocketChannel) Publish(ctx context.Context, conversationID string, env realtime.Envelope) error {
	env.ConversationID = conversationID
	s.mu.Lock()
	_, member := s.rooms[conversationID]
	s.mu.Unlock()
	if member {
		return s.write(realtime.MessageFrame(env))
	}

	reply, err := s.request(ctx, realtime.Frame{Type: realtime.FrameJoin, ConversationID: conversationID}, nil)
	if err != nil {
		return err
	}
	if reply.Type != realtime.FrameJoined {
		return fmt.Errorf("join %s: %s: %s", conversationID, reply.Code, reply.Error)
	}
	werr := s.write(realtime.MessageFrame(env))
	if _, err := s.request(ctx, realtime.Frame{Type: realtime.FrameLeave, ConversationID: conversationID}, nil); err != nil && werr == nil {
		return err
	}
	return werr
}

// Close ends the socket and every subscription.
func (s *SocketChannel) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		s.writeMu.Unlock()
		err = s.conn.Close()
		<-s.done
	})
	return err
}

func (s *SocketChannel) request(ctx context.Context, f realtime.Frame, register func()) (realtime.Frame, error) {
	reply := make(chan realtime.Frame, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return realtime.Frame{}, ErrSocketClosed
	}
	s.pending[f.ConversationID] = reply
	if register != nil {
		register()
	}
	s.mu.Unlock()

	if err := s.write(f); err != nil {
		return realtime.Frame{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, joinDeadline)
	defer cancel()
	select {
	case r := <-reply:
		return r, nil
	case <-s.done:
		return realtime.Frame{}, ErrSocketClosed
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, f.ConversationID)
		s.mu.Unlock()
		return realtime.Frame{}, ctx.Err()
	}
}

func (s *SocketChannel) write(f realtime.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

func (s *SocketChannel) readLoop() {
	defer func() {
		s.mu.Lock()
		s.closed = true
		for id, sub := range s.rooms {
			close(sub.envs)
			delete(s.rooms, id)
		}
		s.mu.Unlock()
		close(s.done)
	}()

	for {
		var f realtime.Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug().Err(err).Msg("socket read ended")
			}
			return
		}

		switch f.Type {
		case realtime.FrameMessage:
			s.mu.Lock()
			sub := s.rooms[f.ConversationID]
			if sub != nil {
				select {
				case sub.envs <- f.Envelope():
				default:
					s.log.Warn().Str("conversation_id", f.ConversationID).Msg("room buffer full, push dropped")
				}
			}
			s.mu.Unlock()
		case realtime.FrameJoined, realtime.FrameLeft, realtime.FrameError:
			s.mu.Lock()
			reply, ok := s.pending[f.ConversationID]
			if ok {
				delete(s.pending, f.ConversationID)
				reply <- f
			} else if f.Type == realtime.FrameError {
				s.log.Warn().Str("code", f.Code).Str("error", f.Error).Msg("server error frame")
			}
			s.mu.Unlock()
		}
	}
}

type socketSubscription struct {
	ch             *SocketChannel
	conversationID string
	envs           chan realtime.Envelope
	once           sync.Once
}

func (s *socketSubscription) Envelopes() <-chan realtime.Envelope { return s.envs }

func (s *socketSubscription) Publish(env realtime.Envelope) error {
	env.ConversationID = s.conversationID
	s.ch.mu.Lock()
	live := s.ch.rooms[s.conversationID] == s
	s.ch.mu.Unlock()
	if !live {
		ctx, cancel := context.WithTimeout(context.Background(), joinDeadline)
		defer cancel()
		return s.ch.Publish(ctx, s.conversationID, env)
	}
	return s.ch.write(realtime.MessageFrame(env))
}

// Close sends a leave frame and stops the envelope stream.
func (s *socketSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.ch.mu.Lock()
		if s.ch.rooms[s.conversationID] == s {
			delete(s.ch.rooms, s.conversationID)
			close(s.envs)
		}
		s.ch.mu.Unlock()
		_, err = s.ch.request(context.Background(), realtime.Frame{Type: realtime.FrameLeave, ConversationID: s.conversationID}, nil)
		if errors.Is(err, ErrSocketClosed) {
			err = nil
		}
	})
	return err
}
