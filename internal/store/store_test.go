package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fastPolicy(retries int) Policy {
	return Policy{Timeout: time.Second, MaxRetries: retries, InitialInterval: time.Millisecond}
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("get user", errBoom)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, errBoom)

	canceled := Unavailable("get user", context.Canceled)
	assert.NotErrorIs(t, canceled, ErrUnavailable)
	assert.ErrorIs(t, canceled, context.Canceled)
}

func TestRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Unavailable("op", errBoom)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsAfterMaxRetries(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Retry(context.Background(), func(context.Context) error {
		calls++
		return Unavailable("op", errBoom)
	})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls) // first try + 2 retries
}

func TestRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Retry(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestOnce_AppliesDeadline(t *testing.T) {
	p := Policy{Timeout: 10 * time.Millisecond}
	err := p.Once(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
