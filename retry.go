package ygggo_mockdb

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls retry strategy.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      bool
	MaxElapsed  time.Duration
}

// DefaultRetryPolicy retries transient failures twice with short exponential waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: 10 * time.Millisecond,
		MaxBackoff:  100 * time.Millisecond,
		Jitter:      true,
	}
}

// NoRetry runs every operation exactly once.
func NoRetry() RetryPolicy { return RetryPolicy{MaxAttempts: 1} }

func (pol RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	if pol.MaxAttempts <= 0 {
		pol.MaxAttempts = 1
	}
	if pol.BaseBackoff <= 0 {
		pol.BaseBackoff = 10 * time.Millisecond
	}
	if pol.MaxBackoff < pol.BaseBackoff {
		pol.MaxBackoff = pol.BaseBackoff
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = pol.BaseBackoff
	exp.MaxInterval = pol.MaxBackoff
	exp.MaxElapsedTime = pol.MaxElapsed
	if !pol.Jitter {
		exp.RandomizationFactor = 0
	}
	exp.Reset()
	return backoff.WithMaxRetries(backoff.WithContext(exp, ctx), uint64(pol.MaxAttempts-1))
}

// retryWithPolicy retries op according to policy. Only errors that classify
// as retryable or readonly are attempted again; the rest fail immediately.
func retryWithPolicy(ctx context.Context, pol RetryPolicy, op func() error, classify func(error) ErrorClass, notify backoff.Notify) error {
	if ctx == nil {
		ctx = context.Background()
	}
	wrapped := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err == nil {
			return nil
		}
		switch classify(err) {
		case ErrClassRetryable, ErrClassReadonly:
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	return backoff.RetryNotify(wrapped, pol.backOff(ctx), notify)
}
