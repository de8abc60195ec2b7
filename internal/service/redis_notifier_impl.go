package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/jnst/event-sourcing-pattern/internal/model"
)

// EventStreamKey is the Redis Streams key appended events are published to.
const EventStreamKey = "inventory:events"

// RedisNotifierImpl implements EventNotifier using Redis Streams.
type RedisNotifierImpl struct {
	redisClient rueidis.Client
}

// NewRedisNotifierImpl creates a new Redis Streams EventNotifier implementation.
func NewRedisNotifierImpl(redisClient rueidis.Client) EventNotifier {
	return &RedisNotifierImpl{redisClient: redisClient}
}

// Publish appends the event to the inventory event stream.
func (n *RedisNotifierImpl) Publish(ctx context.Context, event model.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	cmd := n.redisClient.B().Xadd().Key(EventStreamKey).Id("*").
		FieldValue().
		FieldValue("event_kind", string(event.Kind())).
		FieldValue("payload", string(payload)).
		FieldValue("date", event.OccurredAt().Format(model.DateFormat)).
		Build()

	if err := n.redisClient.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to publish event to stream: %w", err)
	}

	return nil
}
