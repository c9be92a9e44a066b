package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/price-query/internal/core/domain"
)

const defaultEventStream = "price-events"

// RedisPublisher appends audit events to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = defaultEventStream
	}
	return &RedisPublisher{client: client, stream: stream}
}

func (r *RedisPublisher) PublishEvent(ctx context.Context, event domain.PriceEvent) error {
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"id":         event.ID,
			"product_id": event.ProductID,
			"brand_id":   event.BrandID,
			"price_list": event.PriceList,
			"query_date": event.QueryDate.Format(time.RFC3339),
			"price":      event.Price.String(),
			"event_type": string(event.EventType),
			"created_at": event.CreatedAt.Format(time.RFC3339),
		},
	}).Err()
}

// NopPublisher is wired in when publishing is disabled by
// configuration: every publish is a no-op success.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, event domain.PriceEvent) error {
	return nil
}
