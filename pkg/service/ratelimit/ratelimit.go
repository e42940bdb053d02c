package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default request spacing for the external providers
const (
	DefaultScrapeInterval    = 1500 * time.Millisecond
	DefaultEmbeddingInterval = 100 * time.Millisecond
	DefaultBackoff           = 60 * time.Second
)

// Limiter is a token bucket with a burst of one, so consecutive Wait calls are
// spaced by at least the configured interval. A provider that answered with
// "too many requests" can push the next slot out with Backoff.
type Limiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
}

// New creates a Limiter spacing requests by interval.
// A non-positive interval disables spacing.
func New(interval time.Duration) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		bucket: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the next request may be issued or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
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

// Backoff delays every following Wait by d. Zero or negative uses DefaultBackoff.
func (l *Limiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if next := time.Now().Add(d); next.After(l.retryAt) {
		l.retryAt = next
	}
}
