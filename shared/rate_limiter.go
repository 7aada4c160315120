package shared

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestRateLimiter enforces a minimum delay between outbound requests, for
// providers with per-minute quotas.
type RequestRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewRequestRateLimiter creates a new rate limiter with the specified minimum delay
func NewRequestRateLimiter(minimumDelay time.Duration) *RequestRateLimiter {
	return &RequestRateLimiter{
		minimumDelay: minimumDelay,
	}
}

// Wait blocks until the minimum delay has elapsed since the last request, or
// the context is cancelled.
func (limiter *RequestRateLimiter) Wait(ctx context.Context) error {
	limiter.mutex.Lock()
	elapsedTime := time.Since(limiter.lastRequestTime)
	remainingDelay := time.Duration(0)
	if !limiter.lastRequestTime.IsZero() && elapsedTime < limiter.minimumDelay {
		remainingDelay = limiter.minimumDelay - elapsedTime
	}
	limiter.lastRequestTime = time.Now().Add(remainingDelay)
	limiter.requestCount++
	requestCount := limiter.requestCount
	limiter.mutex.Unlock()

	if remainingDelay <= 0 {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"component":       "RequestRateLimiter",
		"remaining_delay": remainingDelay,
		"request_count":   requestCount,
	}).Debug("Enforcing rate limit delay")

	timer := time.NewTimer(remainingDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestCount returns the total number of requests processed
func (limiter *RequestRateLimiter) RequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}

// Reset resets the rate limiter state
func (limiter *RequestRateLimiter) Reset() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	limiter.lastRequestTime = time.Time{}
	limiter.requestCount = 0
}
