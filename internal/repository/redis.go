package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"tourbook/internal/config"
	"tourbook/internal/domain"
	"tourbook/internal/metrics"
	"tourbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	tourKeyPrefix      = "tourbook:tour:"
	rateLimitKeyPrefix = "tourbook:rate_limit:"
	cacheRetryAfter    = time.Minute
)

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// CachedTourRepository serves single-tour reads from Redis and invalidates
// entries on every write. When Redis fails it bypasses the cache for a while
// and reads straight from the underlying repository.
type CachedTourRepository struct {
	domain.TourRepository
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger

	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewCachedTourRepository(next domain.TourRepository, client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *CachedTourRepository {
	if ttl <= 0 {
		ttl = models.DefaultTourCacheTTL * time.Second
	}
	return &CachedTourRepository{
		TourRepository: next,
		client:         client,
		ttl:            ttl,
		logger:         logger,
	}
}

func tourKey(id string) string {
	return tourKeyPrefix + id
}

// usable reports whether the cache should be consulted right now.
func (r *CachedTourRepository) usable() bool {
	if r.client == nil {
		return false
	}
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > cacheRetryAfter
}

func (r *CachedTourRepository) markResult(err error) {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("Tour cache recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Tour cache failed, reading from store")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *CachedTourRepository) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	if r.usable() {
		val, err := r.client.Get(ctx, tourKey(id)).Result()
		switch {
		case err == nil:
			r.markResult(nil)
			var tour models.Tour
			if err := json.Unmarshal([]byte(val), &tour); err == nil {
				metrics.IncCacheHit()
				return &tour, nil
			}
			r.logger.Warn().Str("tour_id", id).Msg("Dropping undecodable cached tour")
		case errors.Is(err, redis.Nil):
			r.markResult(nil)
		default:
			r.markResult(err)
		}
	}

	metrics.IncCacheMiss()
	tour, err := r.TourRepository.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.usable() {
		data, err := json.Marshal(tour)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tour: %w", err)
		}
		r.markResult(r.client.Set(ctx, tourKey(id), data, r.ttl).Err())
	}
	return tour, nil
}

func (r *CachedTourRepository) UpdateTour(ctx context.Context, tour *models.Tour) error {
	if err := r.TourRepository.UpdateTour(ctx, tour); err != nil {
		return err
	}
	r.invalidate(ctx, tour.ID)
	return nil
}

func (r *CachedTourRepository) DeleteTour(ctx context.Context, id string) error {
	if err := r.TourRepository.DeleteTour(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedTourRepository) invalidate(ctx context.Context, id string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, tourKey(id)).Err(); err != nil {
		r.logger.Warn().Err(err).Str("tour_id", id).Msg("Failed to invalidate cached tour")
		r.markResult(err)
	}
}

// InvalidateAll drops every cached tour, e.g. after a category rename.
func (r *CachedTourRepository) InvalidateAll(ctx context.Context) {
	if r.client == nil {
		return
	}
	iter := r.client.Scan(ctx, 0, tourKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to invalidate cached tour")
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to scan cached tours")
		r.markResult(err)
	}
}

// RedisRateLimiter is a fixed-window limiter shared by every API instance.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	redisKey := rateLimitKeyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(l.limit), nil
}
