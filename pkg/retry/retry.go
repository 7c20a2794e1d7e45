// Package retry runs an operation with exponential backoff. Errors are
// retried unless wrapped with Permanent.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// MaxElapsedTime caps the whole run; zero means no cap.
	MaxElapsedTime time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  10 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// OnRetry is called after a failed attempt that will be retried.
type OnRetry func(attempt int, err error, nextDelay time.Duration)

// Do calls fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. It returns the last error fn produced.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error, onRetry OnRetry) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	b := newBackOff(policy)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, next time.Duration) {
			onRetry(attempt, err, next)
		}
	}

	return backoff.RetryNotify(operation, b, notify)
}

func newBackOff(policy Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		exp.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	if policy.Multiplier > 0 {
		exp.Multiplier = policy.Multiplier
	}
	exp.MaxElapsedTime = policy.MaxElapsedTime
	exp.Reset()
	return exp
}
