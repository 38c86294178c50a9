package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitRepository counts requests per key in fixed windows.
type RateLimitRepository interface {
	// Allow increments the counter for key and reports whether it is still
	// within limit for the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error)
}

// RedisRateLimitRepo stores counters in redis.
type RedisRateLimitRepo struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewRateLimitRepo constructs a RedisRateLimitRepo.
func NewRateLimitRepo(client *redis.Client, logger *zap.Logger) *RedisRateLimitRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateLimitRepo{redis: client, logger: logger}
}

func (r *RedisRateLimitRepo) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Error("failed to increment rate limit", zap.String("key", key), zap.Error(err))
		return false, 0, err
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, window).Err(); err != nil {
			r.logger.Warn("failed to set rate limit expiry", zap.String("key", key), zap.Error(err))
		}
	}
	return count <= int64(limit), count, nil
}
