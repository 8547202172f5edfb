package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "test", fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "test", fastConfig(2), func() error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "test", fastConfig(5), func() error {
		calls++
		return Permanent(errFlaky)
	})
	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "test", fastConfig(5), func() error { return errFlaky })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeDelayIsCapped(t *testing.T) {
	cfg := withDefaults(RetryConfig{InitialDelay: time.Second, MaxDelay: 2 * time.Second})
	assert.LessOrEqual(t, computeDelay(10, cfg), 2*time.Second)
	assert.Nil(t, Permanent(nil))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Permanent(errFlaky)))
	assert.True(t, IsPermanent(fmt.Errorf("apply: %w", Permanent(errFlaky))))
	assert.False(t, IsPermanent(errFlaky))
	assert.False(t, IsPermanent(nil))
}
