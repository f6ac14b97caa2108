package ocr

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// backoff builds the exponential curve for policy. MaxAttempts counts
// the first call, so it allows MaxAttempts-1 retries.
func backoff(policy domain.RetryPolicy) retry.Backoff {
	base := policy.InitialBackoff
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if policy.MaxBackoff > 0 {
		b = retry.WithCappedDuration(policy.MaxBackoff, b)
	}
	retries := policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

// call runs fn under policy. Only errors for which domain.IsRetryable holds
// are retried; each attempt gets its own timeout. It returns the number of
// attempts made.
func call(ctx context.Context, policy domain.RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	err := retry.Do(ctx, backoff(policy), func(ctx context.Context) error {
		attempts++

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if policy.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, policy.CallTimeout)
		}
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		// A per-call timeout is a transient failure; the run's own cancellation is not.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.Join(domain.ErrServiceUnavailable, err)
		}
		if domain.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return attempts, err
}
