package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryPolicy is one reusable description of how upstream-dependent
// operations retry: bounded attempts, exponential backoff from
// BaseDelay capped at MaxDelay, gated by IsRetryable.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	IsRetryable func(error) bool
}

func DefaultRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		IsRetryable: IsTransient,
	}
}

// IsTransient reports whether an error is worth retrying: rate limits,
// server-side failures, and timeouts.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode == 429 || upstream.StatusCode >= 500
	}
	return false
}

// Do runs op until it succeeds, fails a non-retryable way, or the
// attempt budget runs out. Delay for attempt k is BaseDelay * 2^(k-1).
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.IsRetryable == nil || !p.IsRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		slog.Warn("transient analysis failure, backing off", "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, LastErr: lastErr}
}
