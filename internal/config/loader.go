package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto config keys. Flags win over the file
// and the environment when they were set explicitly.
var flagKeys = map[string]string{
	"http-port": "server.port",
	"smtp-port": "smtp.port",
	"max":       "store.max",
	"whitelist": "smtp.whitelist",
	"log-level": "logging.level",
}

// Load reads configFile (optional), environment variables and flags, in
// increasing order of precedence. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVariables(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(v, &cfg, flags)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 1080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.swagger", true)

	v.SetDefault("smtp.host", "0.0.0.0")
	v.SetDefault("smtp.port", 2525)
	v.SetDefault("smtp.domain", "localhost")
	v.SetDefault("smtp.max_message_bytes", 10<<20)
	v.SetDefault("smtp.max_recipients", 100)
	v.SetDefault("smtp.read_timeout", 60*time.Second)
	v.SetDefault("smtp.write_timeout", 60*time.Second)
	v.SetDefault("smtp.whitelist", []string{})
	v.SetDefault("smtp.tls.enabled", false)
	v.SetDefault("smtp.tls.implicit", false)
	v.SetDefault("smtp.tls.cert_file", "")
	v.SetDefault("smtp.tls.key_file", "")
	v.SetDefault("smtp.tls.self_signed", false)

	v.SetDefault("store.max", 100)
	v.SetDefault("store.retain_raw", true)
	v.SetDefault("store.retain_attachments", true)

	v.SetDefault("notifier.subscriber_buffer", 16)
	v.SetDefault("notifier.write_timeout", 10*time.Second)
	v.SetDefault("notifier.ping_interval", 30*time.Second)

	v.SetDefault("forwarding.queue_size", 256)
	v.SetDefault("forwarding.redis.enabled", false)
	v.SetDefault("forwarding.redis.host", "localhost")
	v.SetDefault("forwarding.redis.port", 6379)
	v.SetDefault("forwarding.redis.password", "")
	v.SetDefault("forwarding.redis.db", 0)
	v.SetDefault("forwarding.redis.channel", "mailsink.events")
	v.SetDefault("forwarding.kafka.enabled", false)
	v.SetDefault("forwarding.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("forwarding.kafka.topic", "mailsink.events")
	v.SetDefault("forwarding.retry.max_attempts", 3)
	v.SetDefault("forwarding.retry.initial_interval", 100*time.Millisecond)
	v.SetDefault("forwarding.retry.max_interval", 2*time.Second)
	v.SetDefault("forwarding.retry.multiplier", 2.0)
	v.SetDefault("forwarding.retry.max_elapsed_time", 10*time.Second)

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60*time.Second)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("circuit_breaker.min_requests", 5)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.cleanup_interval", 60)
	v.SetDefault("rate_limit.max_age", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "mailsink")
	v.SetDefault("tracing.otlp.endpoint", "localhost:4317")
	v.SetDefault("tracing.otlp.insecure", true)
	v.SetDefault("tracing.sampler.type", "always_on")
	v.SetDefault("tracing.sampler.param", 1.0)
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("server.port", "SERVER_PORT", "HTTP_PORT")
	v.BindEnv("smtp.port", "SMTP_PORT")
	v.BindEnv("smtp.domain", "SMTP_DOMAIN")
	v.BindEnv("store.max", "STORE_MAX", "MAX_EMAILS")

	v.BindEnv("smtp.tls.enabled", "SMTP_TLS_ENABLED")
	v.BindEnv("smtp.tls.cert_file", "SMTP_TLS_CERT_FILE")
	v.BindEnv("smtp.tls.key_file", "SMTP_TLS_KEY_FILE")

	v.BindEnv("forwarding.redis.enabled", "FORWARDING_REDIS_ENABLED")
	v.BindEnv("forwarding.redis.host", "FORWARDING_REDIS_HOST")
	v.BindEnv("forwarding.redis.port", "FORWARDING_REDIS_PORT")
	v.BindEnv("forwarding.redis.password", "FORWARDING_REDIS_PASSWORD")
	v.BindEnv("forwarding.kafka.enabled", "FORWARDING_KAFKA_ENABLED")
	v.BindEnv("forwarding.kafka.topic", "FORWARDING_KAFKA_TOPIC")

	v.BindEnv("logging.level", "LOGGING_LEVEL")
	v.BindEnv("logging.format", "LOGGING_FORMAT")

	v.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	v.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Comma-separated list variables are split by hand; viper leaves them as a
// single string. An explicit --whitelist still wins.
func applyEnvOverrides(v *viper.Viper, cfg *Config, flags *pflag.FlagSet) {
	if brokers := splitList(v.GetString("FORWARDING_KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Forwarding.Kafka.Brokers = brokers
	}
	if flags != nil {
		if f := flags.Lookup("whitelist"); f != nil && f.Changed {
			return
		}
	}
	if whitelist := splitList(v.GetString("SMTP_WHITELIST")); len(whitelist) > 0 {
		cfg.SMTP.Whitelist = whitelist
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AsValidationError unwraps the first ValidationError in err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
