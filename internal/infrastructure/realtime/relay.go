package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRelayChannel is the Redis Pub/Sub channel shared by all nodes.
const DefaultRelayChannel = "duochat:rooms"

// RedisRelay mirrors room publishes across API nodes through Redis Pub/Sub.
// Each node tags what it forwards and ignores its own traffic.
type RedisRelay struct {
	client  *redis.Client
	channel string
	nodeID  string
	log     zerolog.Logger
}

type relayMessage struct {
	Node     string   `json:"node"`
	Envelope Envelope `json:"envelope"`
}

func NewRedisRelay(client *redis.Client, channel string, log zerolog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel, nodeID: uuid.NewString(), log: log}
}

func (r *RedisRelay) NodeID() string { return r.nodeID }

func (r *RedisRelay) Forward(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(relayMessage{Node: r.nodeID, Envelope: env})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run subscribes and hands foreign envelopes to the hub until ctx ends.
func (r *RedisRelay) Run(ctx context.Context, h *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("realtime: relay subscription closed")
			}
			env, ok := decodeRelayed(r.nodeID, []byte(msg.Payload))
			if !ok {
				continue
			}
			h.DeliverRelayed(env)
		}
	}
}

// decodeRelayed returns the envelope unless it is malformed or came from self.
func decodeRelayed(self string, payload []byte) (Envelope, bool) {
	var m relayMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return Envelope{}, false
	}
	if m.Node == self || m.Envelope.ConversationID == "" {
		return Envelope{}, false
	}
	return m.Envelope, true
}
