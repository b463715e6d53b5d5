package recovery

import (
	"context"
	"errors"
	"time"
)

// maxRetryDelay caps every computed backoff.
const maxRetryDelay = 60 * time.Second

// defaultMaxRetries applies when a code has no explicit retry budget.
const defaultMaxRetries = 3

// Delay computes the exponential backoff before retry number attempt
// (0-based): min(base << attempt, 60s). The base comes from the taxonomy
// entry bridged from the category.
func Delay(category Category, attempt int) time.Duration {
	info, ok := Lookup(CodeFor(category))
	base := info.RetryDelay
	if !ok || base <= 0 {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		if delay >= maxRetryDelay/2 {
			return maxRetryDelay
		}
		delay *= 2
	}
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// MaxRetries returns the retry budget for an error's category.
func MaxRetries(err error) int {
	info, ok := Lookup(CodeFor(CategoryOf(err)))
	if !ok || info.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return info.MaxRetries
}

// ShouldRetry reports whether a failed attempt (0-based) should be retried:
// the error must be retryable and the attempt under the category's budget.
func ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if !IsRetryable(err) {
		return false
	}
	return attempt < MaxRetries(err)
}

// Sleep waits for the computed backoff, returning early when the context is
// cancelled.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
