package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
)

func fastConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	}, fastConfig(5), logging.NewNoOpLogger())

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := RetryFunc(context.Background(), func() error {
		calls++
		return boom
	}, fastConfig(3), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	fatal := errors.New("nonce too low")
	calls := 0
	err := RetryFunc(context.Background(), func() error {
		calls++
		return Permanent(fatal)
	}, fastConfig(5), nil)

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ShouldRetryPredicate(t *testing.T) {
	calls := 0
	cfg := fastConfig(5)
	cfg.ShouldRetry = func(err error, attempt int) bool { return attempt < 2 }

	err := RetryFunc(context.Background(), func() error {
		calls++
		return errors.New("flaky")
	}, cfg, nil)

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, func() (int, error) { return 1, nil }, fastConfig(3), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultRetryConfig().Validate())

	bad := []*RetryConfig{
		{MaxAttempts: 0, InitialDelay: time.Second, MaxDelay: time.Second, BackoffFactor: 1},
		{MaxAttempts: 1, InitialDelay: 0, MaxDelay: time.Second, BackoffFactor: 1},
		{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Millisecond, BackoffFactor: 1},
		{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Second, BackoffFactor: 0.5},
		{MaxAttempts: 1, InitialDelay: time.Second, MaxDelay: time.Second, BackoffFactor: 1, JitterFactor: 2},
	}
	for _, cfg := range bad {
		assert.Error(t, cfg.Validate())
	}
}

func TestCalculateNextDelay_CapsAtMax(t *testing.T) {
	assert.Equal(t, 2*time.Second, CalculateNextDelay(time.Second, 2, 10*time.Second))
	assert.Equal(t, 3*time.Second, CalculateNextDelay(2*time.Second, 2, 3*time.Second))
}

func TestCalculateDelayWithJitter_Bounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := CalculateDelayWithJitter(base, 0.5)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2+time.Nanosecond)
	}
	assert.Equal(t, base, CalculateDelayWithJitter(base, 0))
}
