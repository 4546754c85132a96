package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func testPolicy(maxAttempts int) RetryPolicy {
	return DefaultRetryPolicy(maxAttempts, time.Millisecond, 4*time.Millisecond)
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &UpstreamError{StatusCode: 503, Err: errors.New("unavailable")}
		}
		return nil
	})

	assert.Equal(t, nil, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := testPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	assert.Equal(t, 1, calls)
	if !errors.Is(err, permanent) {
		t.Fatalf("expected the permanent error back, got %v", err)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &UpstreamError{StatusCode: 429, Err: errors.New("rate limited")}
	})

	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	assert.Equal(t, 3, exhausted.Attempts)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected wrapped UpstreamError, got %v", err)
	}
	assert.Equal(t, 429, upstream.StatusCode)
}

func TestRetry_StopsWhenContextExpires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	policy := DefaultRetryPolicy(10, 50*time.Millisecond, time.Second)
	err := policy.Do(ctx, func(ctx context.Context) error {
		return &UpstreamError{StatusCode: 500, Err: errors.New("boom")}
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &UpstreamError{StatusCode: 429}, true},
		{"server error", &UpstreamError{StatusCode: 500}, true},
		{"bad gateway", &UpstreamError{StatusCode: 502}, true},
		{"client error", &UpstreamError{StatusCode: 400}, false},
		{"timeout", context.DeadlineExceeded, true},
		{"plain error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
