package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"folio-chat/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultChangesChannel = "folio:changes"

// RedisNotifier spreads collection changes between store nodes over redis pub/sub.
// A node ignores its own messages, it already refreshed locally.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
	node    string
	log     *slog.Logger
}

type changeMessage struct {
	Node       string `json:"node"`
	Collection string `json:"collection"`
}

func NewRedisNotifier(log *slog.Logger, client redis.UniversalClient, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChangesChannel
	}
	return &RedisNotifier{
		client:  client,
		channel: channel,
		node:    uuid.NewString(),
		log:     log,
	}
}

func (n *RedisNotifier) Publish(ctx context.Context, collection string) error {
	payload, err := n.encode(collection)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

// Listen subscribes to the changes channel. Once the subscription is confirmed it
// reports AllCollections, since changes may have been missed while disconnected.
func (n *RedisNotifier) Listen(ctx context.Context, onChange func(collection string)) error {
	pubsub := n.client.Subscribe(ctx, n.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", n.channel, err)
	}
	n.log.Info("Listening to store changes", "channel", n.channel, "node", n.node)
	onChange(contract.AllCollections)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis subscription to %s closed", n.channel)
			}
			collection, remote := n.decode(msg.Payload)
			if remote {
				onChange(collection)
			}
		}
	}
}

func (n *RedisNotifier) encode(collection string) (string, error) {
	b, err := json.Marshal(changeMessage{Node: n.node, Collection: collection})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decode returns the changed collection and whether it comes from another node.
func (n *RedisNotifier) decode(payload string) (string, bool) {
	var msg changeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		n.log.Warn("Dropping malformed change message", "payload", payload, "error", err)
		return "", false
	}
	if msg.Collection == "" || msg.Node == n.node {
		return "", false
	}
	return msg.Collection, true
}
