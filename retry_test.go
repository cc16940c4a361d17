package ygggo_mockdb

import (
	"context"
	"errors"
	"testing"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

var errRetry = errors.New("retryable")
var errNonRetry = errors.New("non-retryable")

func classifyForTest(err error) ErrorClass {
	if errors.Is(err, errRetry) {
		return ErrClassRetryable
	}
	return ErrClassUnknown
}

func TestRetry_SucceedsAfterRetries(t *testing.T) {
	ctx := context.Background()
	pol := RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Jitter: false, MaxElapsed: 50 * time.Millisecond}
	calls := 0
	op := func() error {
		calls++
		if calls < 3 {
			return errRetry
		}
		return nil
	}
	if err := retryWithPolicy(ctx, pol, op, classifyForTest, nil); err != nil {
		t.Fatalf("retryWithPolicy err: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d want 3", calls)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	ctx := context.Background()
	pol := RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Jitter: false, MaxElapsed: 50 * time.Millisecond}
	calls := 0
	op := func() error { calls++; return errNonRetry }
	if err := retryWithPolicy(ctx, pol, op, classifyForTest, nil); !errors.Is(err, errNonRetry) {
		t.Fatalf("expected non-retryable returned, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	pol := RetryPolicy{MaxAttempts: 4, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	calls := 0
	notified := 0
	op := func() error { calls++; return errRetry }
	err := retryWithPolicy(ctx, pol, op, classifyForTest, func(error, time.Duration) { notified++ })
	if !errors.Is(err, errRetry) {
		t.Fatalf("err=%v", err)
	}
	if calls != 4 {
		t.Fatalf("calls=%d want 4", calls)
	}
	if notified != 3 {
		t.Fatalf("notified=%d want 3", notified)
	}
}

func TestRetry_NoRetry(t *testing.T) {
	calls := 0
	op := func() error { calls++; return &mysql.MySQLError{Number: 1213} }
	if err := retryWithPolicy(context.Background(), NoRetry(), op, Classify, nil); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	op := func() error { calls++; return nil }
	if err := retryWithPolicy(ctx, DefaultRetryPolicy(), op, Classify, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if calls != 0 {
		t.Fatalf("calls=%d want 0", calls)
	}
}
