package cloud

import (
	"context"
	"time"

	"fileflow/pkg/config"
)

// retryDo runs fn up to cfg.MaxAttempts times with exponential backoff
// between attempts, honoring context cancellation. Only idempotent
// metadata operations go through here; streams are never retried.
func retryDo(ctx context.Context, cfg config.RetryConfig, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := cfg.BaseDelay.Std()
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}

	return err
}
