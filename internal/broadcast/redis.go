package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dispatch/internal/domain"
)

// RedisPublisher publishes ride events on Redis pub/sub channels so other
// processes (live map, chat, a sweeper) can consume them.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client *redis.Client, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

// Publish sends the event on the topic's pub/sub channel. Failures are
// logged and swallowed.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal event", zap.Error(err), zap.String("topic", topic))
		return
	}

	if err := p.client.Publish(ctx, topic, payload).Err(); err != nil {
		p.log.Warn("publish event", zap.Error(err), zap.String("topic", topic))
	}
}

var _ Publisher = (*RedisPublisher)(nil)
