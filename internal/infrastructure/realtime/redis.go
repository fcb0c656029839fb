package realtime

import (
	"context"
	"fmt"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts order events over Redis pub/sub for interested
// consumers (dashboards, websocket gateways). Implements domain.EventPublisher.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Get().Info().Msg("connected to redis")
	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher drops every event. Used when Redis is not configured so the
// order flow never depends on the realtime channel being up.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, channel string, payload any) error {
	return nil
}

var _ domain.EventPublisher = (*RedisPublisher)(nil)
var _ domain.EventPublisher = NopPublisher{}
