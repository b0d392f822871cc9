package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"duochat/internal/infrastructure/metrics"
)

var (
	// ErrSubscriberClosed is returned by a subscriber that will never accept
	// another envelope; the hub then drops it from every room.
	ErrSubscriberClosed = errors.New("realtime: subscriber closed")
	// ErrBufferFull is returned when an envelope was dropped for a slow subscriber.
	ErrBufferFull = errors.New("realtime: subscriber buffer full")
)

// Subscriber receives envelopes of the rooms it joined.
// Deliver must not block.
type Subscriber interface {
	ID() string
	Deliver(env Envelope) error
}

// SelfDelivery decides whether a publisher receives its own envelope.
type SelfDelivery int

const (
	ExcludePublisher SelfDelivery = iota
	IncludePublisher
)

// ParseSelfDelivery maps "exclude" and "include".
func ParseSelfDelivery(s string) (SelfDelivery, bool) {
	switch s {
	case "", "exclude":
		return ExcludePublisher, true
	case "include":
		return IncludePublisher, true
	}
	return ExcludePublisher, false
}

// RoomState is Empty until the first join and again after the last leave.
type RoomState int

const (
	RoomEmpty RoomState = iota
	RoomActive
)

func (s RoomState) String() string {
	if s == RoomActive {
		return "active"
	}
	return "empty"
}

// Relay forwards local publishes to other nodes.
type Relay interface {
	Forward(ctx context.Context, env Envelope) error
}

type Option func(*Hub)

func WithSelfDelivery(p SelfDelivery) Option { return func(h *Hub) { h.self = p } }
func WithLogger(l zerolog.Logger) Option { return func(h *Hub) { h.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(h *Hub) { h.metrics = m } }
func WithRelay(r Relay) Option { return func(h *Hub) { h.relay = r } }

// Hub is a room-keyed fan-out registry. Nothing is persisted: an envelope
// published to an empty room is gone.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]Subscriber // conversationID -> subscriberID -> subscriber
	memberships map[string]map[string]struct{}   // subscriberID -> set of conversationIDs

	self    SelfDelivery
	log     zerolog.Logger
	metrics *metrics.Metrics
	relay   Relay
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		rooms:       make(map[string]map[string]Subscriber),
		memberships: make(map[string]map[string]struct{}),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetRelay attaches a relay after construction.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Join adds sub to the conversation room. Joining twice is a no-op.
func (h *Hub) Join(conversationID string, sub Subscriber) {
	if conversationID == "" || sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]Subscriber)
		h.rooms[conversationID] = room
	}
	room[sub.ID()] = sub

	rooms := h.memberships[sub.ID()]
	if rooms == nil {
		rooms = make(map[string]struct{})
		h.memberships[sub.ID()] = rooms
	}
	rooms[conversationID] = struct{}{}
	h.gaugesLocked()
}

// Leave removes sub from the conversation room.
func (h *Hub) Leave(conversationID string, sub Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	h.leaveLocked(conversationID, sub.ID())
	h.gaugesLocked()
	h.mu.Unlock()
}

// LeaveAll removes sub from every room it joined.
func (h *Hub) LeaveAll(sub Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	h.leaveAllLocked(sub.ID())
	h.gaugesLocked()
	h.mu.Unlock()
}

// Publish fans env out to the room and returns how many subscribers took it.
// publisherID names the publishing subscriber, if any, for the self-delivery policy.
// Envelopes from one publisher reach each subscriber in publish order.
func (h *Hub) Publish(conversationID string, env Envelope, publisherID string) int {
	env.ConversationID = conversationID
	exclude := ""
	if h.self == ExcludePublisher {
		exclude = publisherID
	}
	n := h.fanout(conversationID, env, exclude)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := relay.Forward(ctx, env); err != nil {
			h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("relay forward failed")
		}
		cancel()
	}
	return n
}

// DeliverRelayed fans out an envelope that was published on another node.
func (h *Hub) DeliverRelayed(env Envelope) int {
	if h.metrics != nil {
		h.metrics.RelayedInTotal.Inc()
	}
	return h.fanout(env.ConversationID, env, "")
}

func (h *Hub) fanout(conversationID string, env Envelope, exclude string) int {
	h.mu.RLock()
	room := h.rooms[conversationID]
	subs := make([]Subscriber, 0, len(room))
	for id, sub := range room {
		if exclude != "" && id == exclude {
			continue
		}
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	var closed []Subscriber
	for _, sub := range subs {
		err := sub.Deliver(env)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrSubscriberClosed):
			closed = append(closed, sub)
			h.dropped()
		default:
			h.dropped()
			h.log.Debug().Err(err).Str("subscriber_id", sub.ID()).Str("conversation_id", conversationID).Msg("envelope dropped")
		}
	}
	if h.metrics != nil {
		h.metrics.DeliveriesTotal.Add(float64(delivered))
	}
	for _, sub := range closed {
		h.LeaveAll(sub)
	}
	return delivered
}

// RoomState reports whether anyone is subscribed to the conversation.
func (h *Hub) RoomState(conversationID string) RoomState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.rooms[conversationID]) > 0 {
		return RoomActive
	}
	return RoomEmpty
}

// Subscribers returns the room size.
func (h *Hub) Subscribers(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Close empties the registry.
func (h *Hub) Close() {
	h.mu.Lock()
	h.rooms = make(map[string]map[string]Subscriber)
	h.memberships = make(map[string]map[string]struct{})
	h.gaugesLocked()
	h.mu.Unlock()
}

func (h *Hub) leaveAllLocked(subscriberID string) {
	for roomID := range h.memberships[subscriberID] {
		h.leaveLocked(roomID, subscriberID)
	}
	delete(h.memberships, subscriberID)
}

func (h *Hub) leaveLocked(conversationID, subscriberID string) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, subscriberID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if rooms, ok := h.memberships[subscriberID]; ok {
		delete(rooms, conversationID)
		if len(rooms) == 0 {
			delete(h.memberships, subscriberID)
		}
	}
}

func (h *Hub) gaugesLocked() {
	if h.metrics == nil {
		return
	}
	h.metrics.RoomsActive.Set(float64(len(h.rooms)))
	h.metrics.SubscribersActive.Set(float64(len(h.memberships)))
}

func (h *Hub) dropped() {
	if h.metrics != nil {
		h.metrics.DroppedTotal.Inc()
	}
}
