package repository

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

// RedisStreamPublisher implements StreamPublisher with Redis Streams.
type RedisStreamPublisher struct {
	client rueidis.Client
}

// NewRedisStreamPublisher creates a new StreamPublisher backed by rueidis.
func NewRedisStreamPublisher(client rueidis.Client) StreamPublisher {
	return &RedisStreamPublisher{client: client}
}

// Publish XADDs the event and returns the stream entry ID.
func (p *RedisStreamPublisher) Publish(ctx context.Context, stream string, event *model.OutboxEvent) (string, error) {
	cmd := p.client.B().Xadd().Key(stream).Id("*").
		FieldValue().
		FieldValue("event_id", strconv.FormatInt(event.ID, 10)).
		FieldValue("event_type", event.EventType).
		FieldValue("aggregate_id", event.AggregateID).
		FieldValue("payload", string(event.Payload)).
		Build()

	return p.client.Do(ctx, cmd).ToString()
}
