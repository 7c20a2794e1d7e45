package config

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateSMTP(cfg.SMTP); err != nil {
		errs = append(errs, err)
	}

	if err := validateStore(cfg.Store); err != nil {
		errs = append(errs, err)
	}

	if err := validateNotifier(cfg.Notifier); err != nil {
		errs = append(errs, err)
	}

	if err := validateForwarding(cfg.Forwarding); err != nil {
		errs = append(errs, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", port),
		}
	}
	return nil
}

func validateServer(cfg ServerConfig) error {
	if err := validatePort("server.port", cfg.Port); err != nil {
		return err
	}

	if cfg.ReadTimeout < 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be non-negative",
		}
	}

	if cfg.WriteTimeout < 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be non-negative",
		}
	}

	return nil
}

func validateSMTP(cfg SMTPConfig) error {
	if err := validatePort("smtp.port", cfg.Port); err != nil {
		return err
	}

	if cfg.MaxMessageBytes < 0 {
		return &ValidationError{
			Field:   "smtp.max_message_bytes",
			Message: "max message size must be non-negative",
		}
	}

	if cfg.MaxRecipients < 0 {
		return &ValidationError{
			Field:   "smtp.max_recipients",
			Message: "max recipients must be non-negative",
		}
	}

	for i, entry := range cfg.Whitelist {
		if strings.TrimSpace(entry) == "" || entry == "@" {
			return &ValidationError{
				Field:   fmt.Sprintf("smtp.whitelist[%d]", i),
				Message: "whitelist entry cannot be empty",
			}
		}
	}

	if cfg.TLS.Enabled && !cfg.TLS.SelfSigned {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return &ValidationError{
				Field:   "smtp.tls",
				Message: "cert_file and key_file are required unless self_signed is set",
			}
		}
	}

	return nil
}

func validateStore(cfg StoreConfig) error {
	if cfg.Max < 1 {
		return &ValidationError{
			Field:   "store.max",
			Message: fmt.Sprintf("max must be a positive integer, got %d", cfg.Max),
		}
	}
	return nil
}

func validateNotifier(cfg NotifierConfig) error {
	if cfg.SubscriberBuffer < 1 {
		return &ValidationError{
			Field:   "notifier.subscriber_buffer",
			Message: "subscriber buffer must be at least 1",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "notifier.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	if cfg.PingInterval <= 0 {
		return &ValidationError{
			Field:   "notifier.ping_interval",
			Message: "ping interval must be positive",
		}
	}

	return nil
}

func validateForwarding(cfg ForwardingConfig) error {
	if !cfg.Enabled() {
		return nil
	}

	if cfg.QueueSize < 1 {
		return &ValidationError{
			Field:   "forwarding.queue_size",
			Message: "queue size must be at least 1",
		}
	}

	if cfg.Redis.Enabled {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.Kafka.Enabled {
		if err := validateKafka(cfg.Kafka); err != nil {
			return err
		}
	}

	return validateRetry(cfg.Retry)
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "forwarding.redis.host",
			Message: "Redis host is required",
		}
	}

	if err := validatePort("forwarding.redis.port", cfg.Port); err != nil {
		return err
	}

	if cfg.Channel == "" {
		return &ValidationError{
			Field:   "forwarding.redis.channel",
			Message: "Redis channel is required",
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "forwarding.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("forwarding.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Topic == "" {
		return &ValidationError{
			Field:   "forwarding.kafka.topic",
			Message: "Kafka topic is required",
		}
	}

	return nil
}

func validateRetry(cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "forwarding.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 {
		return &ValidationError{
			Field:   "forwarding.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   "forwarding.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   "forwarding.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   "forwarding.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	switch strings.ToLower(cfg.Format) {
	case "", "json", "console":
		return nil
	default:
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: json, console)", cfg.Format),
		}
	}
}
