package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mailsink/internal/constants"
	"mailsink/internal/logger"
	"mailsink/pkg/models"
)

// RedisPublisher publishes events on a Redis pub/sub channel. Events are
// fire-and-forget: a channel without subscribers simply drops them.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	logger  logger.Logger
}

func NewRedisPublisher(client redis.UniversalClient, channel string, log logger.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: log}
}

func (p *RedisPublisher) Name() string {
	return constants.SinkRedis
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.MailEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, body).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", p.channel, err)
	}

	p.logger.DebugwCtx(ctx, "Published event to redis",
		"channel", p.channel,
		"event_id", event.EventID,
		"receivers", receivers,
	)
	return nil
}

// Close is a no-op; the client is owned by whoever created it.
func (p *RedisPublisher) Close() error {
	return nil
}
