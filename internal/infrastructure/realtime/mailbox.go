package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// OverflowPolicy decides what a full Mailbox does with a new envelope.
type OverflowPolicy int

const (
	// DropNewest discards the incoming envelope and keeps the mailbox open.
	DropNewest OverflowPolicy = iota
	// DisconnectOnOverflow closes the mailbox, which removes it from the hub.
	DisconnectOnOverflow
)

// Mailbox is an in-process Subscriber backed by a bounded channel.
type Mailbox struct {
	id     string
	ch     chan Envelope
	policy OverflowPolicy

	mu      sync.Mutex
	closed  bool
	dropped int
}

func NewMailbox(size int, policy OverflowPolicy) *Mailbox {
	if size <= 0 {
		size = 64
	}
	return &Mailbox{id: uuid.NewString(), ch: make(chan Envelope, size), policy: policy}
}

func (m *Mailbox) ID() string { return m.id }

func (m *Mailbox) Deliver(env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSubscriberClosed
	}
	select {
	case m.ch <- env:
		return nil
	default:
	}
	m.dropped++
	if m.policy == DisconnectOnOverflow {
		m.closeLocked()
		return ErrSubscriberClosed
	}
	return ErrBufferFull
}

// C yields delivered envelopes; it is closed by Close.
func (m *Mailbox) C() <-chan Envelope { return m.ch }

// Dropped counts envelopes refused because the buffer was full.
func (m *Mailbox) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closeLocked()
	m.mu.Unlock()
}

func (m *Mailbox) closeLocked() {
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}
