package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"mailsink/internal/config"
	"mailsink/internal/constants"
	"mailsink/internal/logger"
	"mailsink/internal/mailstore"
	"mailsink/pkg/circuitbreaker"
	apperrors "mailsink/pkg/errors"
	"mailsink/pkg/metrics"
	"mailsink/pkg/models"
	"mailsink/pkg/retry"
)

type sink struct {
	publisher Publisher
	breaker   *circuitbreaker.Wrapper
}

// Forwarder is a store listener that publishes a MailEvent for every
// mutation. Publishing happens on its own goroutine; when the queue is full
// events are dropped, never the store blocked.
type Forwarder struct {
	sinks  []sink
	queue  chan models.MailEvent
	policy retry.Policy
	logger logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewForwarder(cfg config.ForwardingConfig, cbCfg config.CircuitBreakerConfig, publishers []Publisher, log logger.Logger) *Forwarder {
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	policy := retry.DefaultPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy = retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}
	}

	f := &Forwarder{
		queue:  make(chan models.MailEvent, queueSize),
		policy: policy,
		logger: log,
		done:   make(chan struct{}),
	}

	for _, p := range publishers {
		s := sink{publisher: p}
		if cbCfg.Enabled {
			s.breaker = circuitbreaker.NewWrapper(circuitbreaker.Config{
				Name:         "forward_" + p.Name(),
				MaxRequests:  cbCfg.MaxRequests,
				Interval:     cbCfg.Interval,
				Timeout:      cbCfg.Timeout,
				FailureRatio: cbCfg.FailureRatio,
				MinRequests:  cbCfg.MinRequests,
				OnStateChange: func(name string, from, to gobreaker.State) {
					log.Warnw("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
				},
			})
		}
		f.sinks = append(f.sinks, s)
	}

	return f
}

// OnChange implements mailstore.Listener.
func (f *Forwarder) OnChange(change mailstore.Change) {
	event := EventFromChange(change)

	select {
	case f.queue <- event:
	default:
		metrics.IncForwarded("queue", "dropped")
		f.logger.Warnw("Forward queue full, dropping event", "event_id", event.EventID, "reason", event.Reason)
	}
}

// Run publishes queued events until ctx is done, then drains what is left
// for a short grace period.
func (f *Forwarder) Run(ctx context.Context) error {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			f.drain()
			return nil
		case event := <-f.queue:
			if ctx.Err() != nil {
				// Cancellation raced the receive; hand this event to drain too.
				f.drain(event)
				return nil
			}
			f.forward(ctx, event)
		}
	}
}

// drain publishes pending first, then whatever is still queued, on a fresh
// context bounded by the drain period.
func (f *Forwarder) drain(pending ...models.MailEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ForwarderDrainPeriod)
	defer cancel()

	for _, event := range pending {
		f.forward(ctx, event)
	}

	for {
		select {
		case event := <-f.queue:
			if ctx.Err() != nil {
				return
			}
			f.forward(ctx, event)
		default:
			return
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, event models.MailEvent) {
	for _, s := range f.sinks {
		name := s.publisher.Name()
		start := time.Now()

		err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
			return f.publishOnce(ctx, s, event)
		}, func(attempt int, err error, next time.Duration) {
			metrics.RetryAttemptsTotal.WithLabelValues(name).Inc()
			f.logger.DebugwCtx(ctx, "Retrying event publish",
				"sink", name,
				"event_id", event.EventID,
				"attempt", attempt,
				"next_delay", next,
				"error", err,
			)
		})
		metrics.ObserveForwardDuration(name, time.Since(start))

		if err != nil {
			metrics.IncForwarded(name, "failed")
			f.logger.ErrorwCtx(ctx, "Failed to forward event",
				"sink", name,
				"event_id", event.EventID,
				"reason", event.Reason,
				"error", err,
			)
			continue
		}
		metrics.IncForwarded(name, "ok")
	}
}

func (f *Forwarder) publishOnce(ctx context.Context, s sink, event models.MailEvent) error {
	if s.breaker == nil {
		return s.publisher.Publish(ctx, event)
	}

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Permanent(apperrors.ErrServiceUnavailable.WithCause(err))
	}
	return err
}

// Close waits, bounded by ctx, for Run to return and then closes every
// publisher.
func (f *Forwarder) Close(ctx context.Context) error {
	var errs []error
	f.closeOnce.Do(func() {
		select {
		case <-f.done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
		for _, s := range f.sinks {
			if err := s.publisher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// EventFromChange builds the compact event for one store mutation.
func EventFromChange(change mailstore.Change) models.MailEvent {
	b := models.NewMailEventBuilder(string(change.Reason)).WithStoreSize(len(change.Snapshot))

	if change.Record != nil {
		b.WithMail(Summarize(*change.Record))
	}
	if change.Evicted != nil {
		b.WithEvicted(Summarize(*change.Evicted))
	}
	if change.Reason == mailstore.ReasonClear {
		b.WithCleared(change.Cleared)
	}
	if change.Record != nil && change.Record.Envelope.RemoteAddr != "" {
		b.WithMetadata("remote_addr", change.Record.Envelope.RemoteAddr)
	}

	return b.Build()
}

func Summarize(r mailstore.Record) models.MailSummary {
	return models.MailSummary{
		ID:          r.ID,
		From:        r.From,
		To:          r.To,
		Subject:     r.Subject,
		Size:        r.Size,
		Attachments: len(r.Attachments),
		ReceivedAt:  r.ReceivedAt,
	}
}
