package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversAfterFailures(t *testing.T) {
	var retries []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error) { retries = append(retries, attempt) }

	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestWithRetryStopsOnFatal(t *testing.T) {
	boom := errors.New("bad credentials")
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return Fatal(boom)
	}, fastConfig())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetrySpendsBudget(t *testing.T) {
	boom := errors.New("always down")
	calls := 0
	cfg := fastConfig()
	cfg.MaxAttempts = 3

	err := WithRetry(context.Background(), func() error {
		calls++
		return boom
	}, cfg)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastConfig()
	cfg.InitialDelay = time.Minute // cancellation must cut the sleep short

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- WithRetry(ctx, func() error {
			calls++
			return errors.New("down")
		}, cfg)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop on cancellation")
	}
}

func TestWithRetrySkipsCallbackAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastConfig()
	cfg.OnRetry = func(int, error) { t.Error("callback fired after cancellation") }

	err := WithRetry(ctx, func() error {
		cancel()
		return context.Canceled
	}, cfg)

	require.ErrorIs(t, err, context.Canceled)
}
