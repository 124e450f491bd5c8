package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoStopsOnSuccess(t *testing.T) {
	calls := 0
	r := New(WithJitter(0), WithInitialDelay(time.Millisecond))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return Retryable(errors.New("relay busy"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoReturnsUnderlyingErrorAfterExhaustion(t *testing.T) {
	boom := errors.New("relay down")
	calls := 0
	r := New(WithMaxAttempts(3), WithJitter(0), WithInitialDelay(time.Millisecond))

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(boom)
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryPlainErrors(t *testing.T) {
	calls := 0

	err := New().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("bad recipient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsPermanentOverRetryIf(t *testing.T) {
	calls := 0
	r := New(
		WithRetryIf(func(error) bool { return true }),
		WithJitter(0),
		WithInitialDelay(time.Millisecond),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errors.New("mailbox does not exist"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsPermanent(err))
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	r := New(WithMaxAttempts(5), WithJitter(0), WithInitialDelay(50*time.Millisecond))

	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errors.New("relay busy"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithMaxDelay(300*time.Millisecond),
		WithJitter(0),
	)

	assert.Equal(t, 100*time.Millisecond, r.backoff(1))
	assert.Equal(t, 200*time.Millisecond, r.backoff(2))
	assert.Equal(t, 300*time.Millisecond, r.backoff(3))
}

func TestOnRetryCallbackSeesEveryWait(t *testing.T) {
	var attempts []int
	r := New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		}),
	)

	_ = r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errors.New("relay busy"))
	})

	assert.Equal(t, []int{1, 2}, attempts)
}
