package repository

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter keeps one token bucket per key in process memory.
type MemoryRateLimiter struct {
	limiters sync.Map
	rps      float64
	burst    int
}

func NewMemoryRateLimiter(rps float64, burst int) *MemoryRateLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &MemoryRateLimiter{rps: rps, burst: burst}
}

func (l *MemoryRateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	actual, _ := l.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.getLimiter(key).Allow(), nil
}
