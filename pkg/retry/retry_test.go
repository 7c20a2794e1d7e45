package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")

	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		return boom
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoPermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("bad payload")

	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return Permanent(boom)
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastPolicy(5), func(context.Context) error {
		calls++
		return errors.New("transient")
	}, nil)

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
