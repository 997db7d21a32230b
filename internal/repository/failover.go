package repository

import (
	"context"
	"sync/atomic"
	"time"

	"tourbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverRateLimiter consults the primary limiter and switches to the
// fallback while the primary is failing, retrying it after a minute.
type FailoverRateLimiter struct {
	primary   domain.RateLimiter
	fallback  domain.RateLimiter
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	retry     time.Duration
}

func NewFailoverRateLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		retry:    time.Minute,
	}
}

func (l *FailoverRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.isDown.Load() || time.Since(time.Unix(0, l.lastCheck.Load())) > l.retry {
		allowed, err := l.primary.Allow(ctx, key)
		if err == nil {
			if l.isDown.Swap(false) {
				l.logger.Info().Msg("Primary rate limiter recovered")
			}
			return allowed, nil
		}
		if !l.isDown.Swap(true) {
			l.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		}
		l.lastCheck.Store(time.Now().UnixNano())
	}

	return l.fallback.Allow(ctx, key)
}
