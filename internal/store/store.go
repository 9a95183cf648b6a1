// Package store holds the failure policy shared by the durable stores:
// per-call deadlines, the transient-failure sentinel, and bounded retries.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrUnavailable marks an infrastructure failure (timeout, lost connection,
// unexpected driver error). It is the only error class Policy retries.
var ErrUnavailable = errors.New("store unavailable")

// Unavailable wraps cause so that errors.Is(err, ErrUnavailable) holds.
// A cancelled caller context is passed through unchanged.
func Unavailable(op string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return fmt.Errorf("%s: %w", op, cause)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, cause)
}

// Policy bounds every store call with a deadline and retries transient failures.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	// InitialInterval is the first backoff delay; zero means 50ms.
	InitialInterval time.Duration
}

// DefaultPolicy mirrors the config defaults.
func DefaultPolicy() Policy {
	return Policy{Timeout: 3 * time.Second, MaxRetries: 3}
}

// Once runs fn a single time under the policy deadline.
func (p Policy) Once(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(ctx)
}

// Retry runs fn under the policy deadline, retrying with exponential backoff
// while it fails with ErrUnavailable. Use it only for idempotent operations.
func (p Policy) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	initial := p.InitialInterval
	if initial <= 0 {
		initial = 50 * time.Millisecond
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = initial
	expo.MaxInterval = 20 * initial
	expo.MaxElapsedTime = 0

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(retries)), ctx)

	var lastErr error
	err := backoff.Retry(func() error {
		lastErr = p.Once(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrUnavailable) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}, b)
	if err != nil && lastErr != nil {
		// backoff reports ctx.Err() when the caller gives up; keep the store cause.
		return lastErr
	}
	return err
}
