package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
)

func TestCall_StopsOnSuccess(t *testing.T) {
	attempts, err := call(context.Background(), testPolicy(), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestCall_RetriesOnlyUnavailable(t *testing.T) {
	attempts, err := call(context.Background(), testPolicy(), func(context.Context) error {
		return domain.ErrServiceUnavailable
	})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 3, attempts)

	plain := errors.New("boom")
	attempts, err = call(context.Background(), testPolicy(), func(context.Context) error { return plain })
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, attempts)
}

func TestCall_PerAttemptTimeoutIsTransient(t *testing.T) {
	policy := testPolicy()
	policy.MaxAttempts = 2
	policy.CallTimeout = 5 * time.Millisecond

	attempts, err := call(context.Background(), policy, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

func TestCall_SingleAttempt(t *testing.T) {
	policy := testPolicy()
	policy.MaxAttempts = 1

	attempts, err := call(context.Background(), policy, func(context.Context) error {
		return domain.ErrServiceUnavailable
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var l *limiter
	require.NoError(t, l.Wait(context.Background()))
	l.RecordQuotaError()
	assert.Nil(t, newLimiter(0))
}

func TestLimiter_QuotaPauseHonoursContext(t *testing.T) {
	l := newLimiter(100)
	l.RecordQuotaError()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}
