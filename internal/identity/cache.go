package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"echo-service/internal/models"
)

const profileCachePrefix = "identity:profile:"

// CachedProfileFetcher keeps provider profiles in redis for ttl so that the
// per-request upsert does not call the provider every time. Cache errors
// fall through to the provider.
type CachedProfileFetcher struct {
	next   ProfileFetcher
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProfileFetcher(next ProfileFetcher, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProfileFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProfileFetcher{next: next, redis: client, ttl: ttl, logger: logger}
}

func (f *CachedProfileFetcher) FetchProfile(ctx context.Context, subject string) (models.ExternalProfile, error) {
	key := profileCachePrefix + subject

	raw, err := f.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile models.ExternalProfile
		if err := json.Unmarshal(raw, &profile); err == nil {
			return profile, nil
		}
		f.logger.Warn("discarding corrupt cached profile", zap.String("subject", subject))
	case !errors.Is(err, redis.Nil):
		f.logger.Warn("profile cache read failed", zap.String("subject", subject), zap.Error(err))
	}

	profile, err := f.next.FetchProfile(ctx, subject)
	if err != nil {
		return models.ExternalProfile{}, err
	}

	if body, err := json.Marshal(profile); err == nil {
		if err := f.redis.Set(ctx, key, body, f.ttl).Err(); err != nil {
			f.logger.Warn("profile cache write failed", zap.String("subject", subject), zap.Error(err))
		}
	}
	return profile, nil
}

// Invalidate drops the cached profile, e.g. after a provider update event.
func (f *CachedProfileFetcher) Invalidate(ctx context.Context, subject string) error {
	return f.redis.Del(ctx, profileCachePrefix+subject).Err()
}
