package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Drive allows 10 requests per second per user; stay below it.
const (
	DefaultRequestsPerSecond = 8.0
	DefaultBurst             = 10
)

// RateLimiter provides rate limiting for Google API requests.
// It uses a token bucket with an extra pause after a 429 response.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter. Non-positive values use the defaults.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any pause set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError pauses all requests for retryAfter, or 60s when
// retryAfter is not positive.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = 60 * time.Second
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(retryAfter)
}
