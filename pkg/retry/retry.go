// Package retry wraps external calls with transient-failure retries and
// exponential backoff. Every provider call in the module runs through it.
package retry

import (
	"context"
	"time"

	"omniswap/pkg/types"
)

// Config controls the retry schedule.
type Config struct {
	MaxRetries        int
	Delay             time.Duration
	BackoffMultiplier float64
}

// DefaultConfig matches the retry budget used across the app: three
// retries starting at one second, doubling each attempt.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		Delay:             time.Second,
		BackoffMultiplier: 2,
	}
}

// Do executes op, retrying transient failures up to cfg.MaxRetries times
// with exponentially increasing delay. Permanent errors, rate limits and
// an exhausted budget propagate the last observed error immediately.
// Cancelling ctx aborts between attempts.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := cfg.Delay
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Rate limits are surfaced to the caller, not hammered.
		if types.IsRateLimited(err) || !types.IsTransient(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
