package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/pkg/config"
)

func TestRetryDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryDo(context.Background(), config.RetryConfig{MaxAttempts: 4, BaseDelay: config.Duration(time.Millisecond)}, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := retryDo(context.Background(), config.RetryConfig{MaxAttempts: 3, BaseDelay: config.Duration(time.Millisecond)}, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetryDo_RecoversMidway(t *testing.T) {
	calls := 0
	err := retryDo(context.Background(), config.RetryConfig{MaxAttempts: 5, BaseDelay: config.Duration(time.Millisecond)}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryDo(ctx, config.RetryConfig{MaxAttempts: 10, BaseDelay: config.Duration(50 * time.Millisecond)}, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation must stop further attempts")
}
