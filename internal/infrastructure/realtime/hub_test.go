package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/infrastructure/metrics"
)

func drain(m *Mailbox) []Envelope {
	var out []Envelope
	for {
		select {
		case env, ok := <-m.C():
			if !ok {
				return out
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestPublishReachesEachOtherSubscriberOnce(t *testing.T) {
	h := NewHub()
	a, b, c := NewMailbox(8, DropNewest), NewMailbox(8, DropNewest), NewMailbox(8, DropNewest)
	h.Join("conv", a)
	h.Join("conv", b)
	h.Join("conv", c)

	n := h.Publish("conv", Envelope{SenderDisplayName: "cy", Content: "hello", DisplayTime: "6:05 PM"}, c.ID())

	assert.Equal(t, 2, n)
	for _, m := range []*Mailbox{a, b} {
		got := drain(m)
		require.Len(t, got, 1)
		assert.Equal(t, "conv", got[0].ConversationID)
		assert.Equal(t, "hello", got[0].Content)
	}
	assert.Empty(t, drain(c))
}

func TestIncludePublisherEchoes(t *testing.T) {
	h := NewHub(WithSelfDelivery(IncludePublisher))
	a := NewMailbox(8, DropNewest)
	h.Join("conv", a)

	assert.Equal(t, 1, h.Publish("conv", Envelope{Content: "me"}, a.ID()))
	assert.Len(t, drain(a), 1)
}

func TestPublishToEmptyRoomIsLost(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.Publish("nobody", Envelope{Content: "x"}, ""))

	late := NewMailbox(8, DropNewest)
	h.Join("nobody", late)
	assert.Empty(t, drain(late))
}

func TestRoomStateTransitions(t *testing.T) {
	h := NewHub()
	a, b := NewMailbox(1, DropNewest), NewMailbox(1, DropNewest)
	assert.Equal(t, RoomEmpty, h.RoomState("conv"))

	h.Join("conv", a)
	h.Join("conv", a)
	h.Join("conv", b)
	assert.Equal(t, RoomActive, h.RoomState("conv"))
	assert.Equal(t, 2, h.Subscribers("conv"))

	h.Leave("conv", a)
	assert.Equal(t, RoomActive, h.RoomState("conv"))
	h.Leave("conv", b)
	assert.Equal(t, RoomEmpty, h.RoomState("conv"))
	assert.Equal(t, "empty", h.RoomState("conv").String())
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	h := NewHub()
	a := NewMailbox(1, DropNewest)
	h.Join("one", a)
	h.Join("two", a)

	h.LeaveAll(a)

	assert.Equal(t, RoomEmpty, h.RoomState("one"))
	assert.Equal(t, RoomEmpty, h.RoomState("two"))
}

func TestOverflowPolicies(t *testing.T) {
	m := metrics.New()
	h := NewHub(WithMetrics(m))
	dropper := NewMailbox(1, DropNewest)
	quitter := NewMailbox(1, DisconnectOnOverflow)
	h.Join("conv", dropper)
	h.Join("conv", quitter)

	assert.Equal(t, 2, h.Publish("conv", Envelope{Content: "1"}, ""))
	assert.Equal(t, 0, h.Publish("conv", Envelope{Content: "2"}, ""))

	assert.Equal(t, 1, dropper.Dropped())
	assert.False(t, dropper.Closed())
	assert.True(t, quitter.Closed())
	assert.Equal(t, 1, h.Subscribers("conv"), "closed subscriber is removed")

	got := drain(dropper)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Content)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DeliveriesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomsActive))
}

func TestPublisherOrderIsPreserved(t *testing.T) {
	h := NewHub()
	sub := NewMailbox(256, DropNewest)
	h.Join("conv", sub)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.Publish("conv", Envelope{SenderID: fmt.Sprint(p), Content: fmt.Sprint(i)}, "")
			}
		}(p)
	}
	wg.Wait()

	next := map[string]int{}
	got := drain(sub)
	require.Len(t, got, 200)
	for _, env := range got {
		assert.Equal(t, fmt.Sprint(next[env.SenderID]), env.Content)
		next[env.SenderID]++
	}
}

type fakeRelay struct {
	mu  sync.Mutex
	out []Envelope
}

func (r *fakeRelay) Forward(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, env)
	return nil
}

func TestRelayForwardsLocalPublishesOnly(t *testing.T) {
	relay := &fakeRelay{}
	h := NewHub(WithRelay(relay))
	a := NewMailbox(8, DropNewest)
	h.Join("conv", a)

	h.Publish("conv", Envelope{Content: "local"}, "")
	h.DeliverRelayed(Envelope{ConversationID: "conv", Content: "remote"})

	require.Len(t, relay.out, 1)
	assert.Equal(t, "local", relay.out[0].Content)
	assert.Len(t, drain(a), 2)
}

func TestDecodeRelayedSkipsOwnNode(t *testing.T) {
	payload := []byte(`{"node":"n1","envelope":{"conversationId":"c","senderDisplayName":"ana","content":"hi","displayTime":"1:00 PM"}}`)

	_, ok := decodeRelayed("n1", payload)
	assert.False(t, ok)

	env, ok := decodeRelayed("n2", payload)
	require.True(t, ok)
	assert.Equal(t, "hi", env.Content)

	_, ok = decodeRelayed("n2", []byte("not json"))
	assert.False(t, ok)
}

func TestParseSelfDelivery(t *testing.T) {
	p, ok := ParseSelfDelivery("include")
	assert.True(t, ok)
	assert.Equal(t, IncludePublisher, p)

	p, ok = ParseSelfDelivery("")
	assert.True(t, ok)
	assert.Equal(t, ExcludePublisher, p)

	_, ok = ParseSelfDelivery("sometimes")
	assert.False(t, ok)
}
