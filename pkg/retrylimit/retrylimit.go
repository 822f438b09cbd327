// Package retrylimit retries failing operations with exponential backoff.
// It is transport-agnostic: callers mark non-retryable errors by wrapping
// them in FatalError and observe attempts through the OnRetry callback.
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// FatalError stops the retry loop immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as non-retryable.
func Fatal(err error) error { return &FatalError{Err: err} }

// DefaultMaxAttempts caps "unlimited" retry loops.
const DefaultMaxAttempts = 100

// Config controls the backoff schedule.
type Config struct {
	MaxAttempts  int           // 0 means DefaultMaxAttempts
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // delay growth factor, below 1 falls back to 2
	Jitter       bool          // spread delays by up to 25% to avoid lockstep retries
	OnRetry      func(attempt int, err error)
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// WithRetry runs fn until it succeeds, returns a FatalError, the context
// ends, or the attempt budget is spent. Context cancellation wins over the
// schedule: once ctx is done no further attempt or callback happens.
func WithRetry(ctx context.Context, fn func() error, cfg Config) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2.0
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var fatal *FatalError
		if errors.As(lastErr, &fatal) {
			return lastErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		next := delay
		if cfg.Jitter {
			next = addJitter(next)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("retry budget spent after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}
