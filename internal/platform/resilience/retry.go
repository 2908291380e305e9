package resilience

import (
	"context"
	"time"
)

// RetryPolicy retries fn up to Attempts-1 extra times, waiting Delay between
// tries. Retryable decides whether an error is worth another attempt.
type RetryPolicy struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error)
}

func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr)
		}
		if err := Sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return lastErr
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
