package errors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{
		MaxRetries:   n,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function failing twice
	var calls atomic.Int32
	fn := func() error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}

	// When: retrying with three retries
	err := Retry(context.Background(), fastRetry(3), fn)

	// Then: it succeeds on the third call
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	cause := errors.New("still down")

	err := Retry(context.Background(), fastRetry(2), func() error {
		calls.Add(1)
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestRetry_RetryIfStopsEarly(t *testing.T) {
	// Given: a predicate rejecting non-retryable errors
	cfg := fastRetry(5)
	cfg.RetryIf = IsRetryable
	var calls atomic.Int32

	// When: the function fails with a validation error
	err := Retry(context.Background(), cfg, func() error {
		calls.Add(1)
		return ValidationError("bad range", nil)
	})

	// Then: only one attempt is made
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ErrCodeBadRequest, GetCode(err))
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, InitialDelay: time.Hour, Multiplier: 1}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Retry(ctx, cfg, func() error { return errors.New("fail") })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	var calls atomic.Int32

	got, err := RetryWithResult(context.Background(), fastRetry(3), func() ([]string, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("first call fails")
		}
		return []string{"Sheet1"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1"}, got)
}

func TestRetryWithResult_ZeroValueOnFailure(t *testing.T) {
	got, err := RetryWithResult(context.Background(), fastRetry(1), func() (int, error) {
		return 42, errors.New("fail")
	})

	require.Error(t, err)
	assert.Zero(t, got)
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.Nil(t, cfg.RetryIf)
}
