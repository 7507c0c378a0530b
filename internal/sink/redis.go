package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/agenttrace/instrument/internal/domain"
)

// DefaultRedisChannel is the channel records are published on.
const DefaultRedisChannel = "instrument:records"

// Publisher is the part of a Redis client the sink uses. *redis.Client
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes each record as JSON on a pub/sub channel.
type Redis struct {
	client  Publisher
	channel string
}

// NewRedis creates a Redis sink. An empty channel uses DefaultRedisChannel.
func NewRedis(client Publisher, channel string) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{client: client, channel: channel}
}

// Name implements Named
func (r *Redis) Name() string { return "redis" }

// Channel returns the pub/sub channel
func (r *Redis) Channel() string { return r.channel }

// Accept publishes rec
func (r *Redis) Accept(ctx context.Context, rec *domain.CallRecord) error {
	data, err := domain.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish record %s: %w", rec.ID, err)
	}
	return nil
}

// AcceptBatch publishes records in one pipeline when the client is a *redis.Client
func (r *Redis) AcceptBatch(ctx context.Context, records []*domain.CallRecord) error {
	c, ok := r.client.(*redis.Client)
	if !ok {
		for _, rec := range records {
			if err := r.Accept(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	}

	_, err := c.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, rec := range records {
			data, err := domain.Encode(rec)
			if err != nil {
				return fmt.Errorf("encode record %s: %w", rec.ID, err)
			}
			p.Publish(ctx, r.channel, data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %d records: %w", len(records), err)
	}
	return nil
}
