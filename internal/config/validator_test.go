package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 1080, ReadTimeout: 10 * time.Second},
		SMTP:   SMTPConfig{Port: 2525, MaxMessageBytes: 1 << 20, MaxRecipients: 10},
		Store:  StoreConfig{Max: 100},
		Notifier: NotifierConfig{
			SubscriberBuffer: 4,
			WriteTimeout:     time.Second,
			PingInterval:     time.Second,
		},
		Forwarding: ForwardingConfig{
			QueueSize: 10,
			Redis:     RedisConfig{Host: "localhost", Port: 6379, Channel: "mails"},
			Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "mails"},
			Retry:     RetryConfig{MaxAttempts: 3, Multiplier: 2},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "http port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantField: "server.port"},
		{name: "smtp port zero", mutate: func(c *Config) { c.SMTP.Port = 0 }, wantField: "smtp.port"},
		{name: "zero max", mutate: func(c *Config) { c.Store.Max = 0 }, wantField: "store.max"},
		{name: "negative max", mutate: func(c *Config) { c.Store.Max = -1 }, wantField: "store.max"},
		{name: "empty whitelist entry", mutate: func(c *Config) { c.SMTP.Whitelist = []string{"a@b.c", " "} }, wantField: "smtp.whitelist[1]"},
		{name: "tls without files", mutate: func(c *Config) { c.SMTP.TLS.Enabled = true }, wantField: "smtp.tls"},
		{name: "tls self signed", mutate: func(c *Config) { c.SMTP.TLS = TLSConfig{Enabled: true, SelfSigned: true} }},
		{name: "subscriber buffer", mutate: func(c *Config) { c.Notifier.SubscriberBuffer = 0 }, wantField: "notifier.subscriber_buffer"},
		{name: "disabled forwarding skips checks", mutate: func(c *Config) { c.Forwarding.QueueSize = 0 }},
		{
			name: "redis without channel",
			mutate: func(c *Config) {
				c.Forwarding.Redis.Enabled = true
				c.Forwarding.Redis.Channel = ""
			},
			wantField: "forwarding.redis.channel",
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Forwarding.Kafka.Enabled = true
				c.Forwarding.Kafka.Brokers = nil
			},
			wantField: "forwarding.kafka.brokers",
		},
		{
			name: "retry intervals inverted",
			mutate: func(c *Config) {
				c.Forwarding.Kafka.Enabled = true
				c.Forwarding.Retry.InitialInterval = time.Second
				c.Forwarding.Retry.MaxInterval = time.Millisecond
			},
			wantField: "forwarding.retry.max_interval",
		},
		{name: "unknown log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantField: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			vErr, ok := AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}
