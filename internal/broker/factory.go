package broker

import (
	"github.com/redis/go-redis/v9"

	"mailsink/internal/config"
	"mailsink/internal/logger"
)

// NewPublishers builds one publisher per enabled sink. redisClient may be nil
// when Redis forwarding is disabled.
func NewPublishers(cfg config.ForwardingConfig, redisClient redis.UniversalClient, log logger.Logger) []Publisher {
	var publishers []Publisher

	if cfg.Redis.Enabled && redisClient != nil {
		publishers = append(publishers, NewRedisPublisher(redisClient, cfg.Redis.Channel, log))
	}

	if cfg.Kafka.Enabled {
		publishers = append(publishers, NewKafkaPublisher(cfg.Kafka, log))
	}

	return publishers
}
