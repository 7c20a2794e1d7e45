// Package bootstrap wires the optional forwarding sinks shared by the
// command entry points.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mailsink/internal/broker"
	"mailsink/internal/config"
	"mailsink/internal/logger"
)

type Base struct {
	Config     *config.Config
	Logger     logger.Logger
	Redis      *redis.Client
	Publishers []broker.Publisher
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitForwarding connects the enabled sinks. A sink that cannot be reached
// at startup is a fatal configuration error, not a degraded mode.
func (b *Base) InitForwarding(ctx context.Context) error {
	fwd := b.Config.Forwarding
	if !fwd.Enabled() {
		return nil
	}

	if fwd.Redis.Enabled {
		rdb, err := NewRedisClient(ctx, fwd.Redis)
		if err != nil {
			return err
		}
		b.Redis = rdb
		b.Logger.InfowCtx(ctx, "Redis connected successfully", "channel", fwd.Redis.Channel)
	}

	b.Publishers = broker.NewPublishers(fwd, b.Redis, b.Logger)
	if len(b.Publishers) == 0 {
		return fmt.Errorf("forwarding enabled but no publisher could be created")
	}

	for _, p := range b.Publishers {
		b.Logger.InfowCtx(ctx, "Event forwarding enabled", "sink", p.Name())
	}
	return nil
}

// ShutdownForwarding closes the Redis client. Publishers are closed by the
// forwarder that owns them.
func (b *Base) ShutdownForwarding() []error {
	var errs []error

	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownForwarding()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
