package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum spacing between calls to the same host using a
// token bucket per host
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	interval time.Duration
	burst    int
}

// NewLimiter creates a limiter allowing one call per interval per host, with
// the given burst capacity
func NewLimiter(interval time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
		burst:    burst,
	}
}

// getLimiter returns or creates the limiter for host
func (l *Limiter) getLimiter(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[host]; exists {
		return limiter
	}

	limit := rate.Inf
	if l.interval > 0 {
		limit = rate.Every(l.interval)
	}
	limiter = rate.NewLimiter(limit, l.burst)
	l.limiters[host] = limiter
	return limiter
}

// Allow reports whether a call to host may proceed now
func (l *Limiter) Allow(host string) bool {
	return l.getLimiter(host).Allow()
}

// Wait blocks until a call to host is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.getLimiter(host).Wait(ctx)
}

// Interval returns the configured spacing
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
