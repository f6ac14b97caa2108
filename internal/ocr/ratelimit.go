package ocr

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// quotaPause is how long calls stop after the service reports quota exhaustion.
const quotaPause = 60 * time.Second

// limiter paces calls to one external service with a token bucket and
// honours a pause after quota errors. A nil limiter never blocks.
type limiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
}

func newLimiter(requestsPerSecond float64) *limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &limiter{bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a call may be made.
func (l *limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.bucket.Wait(ctx)
}

// RecordQuotaError pauses later calls.
func (l *limiter) RecordQuotaError() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retryAt = time.Now().Add(quotaPause)
}
