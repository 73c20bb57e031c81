package cache

import (
	"context"
	"time"

	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache keys for the hot listing endpoints. Each mutation that changes an
// entity type invalidates the matching listing key.
const (
	KeyUsers    = "listing:users"
	KeyPosts    = "listing:posts"
	KeyProjects = "listing:projects"

	listingTTL = 60 * time.Second
)

// Listing is a read-through cache for full-collection listings. A nil
// *Listing is a valid passthrough: every lookup misses and every store or
// invalidation is a no-op, so handlers never branch on cache availability.
type Listing struct {
	redis *RedisClient
}

func NewListing(rc *RedisClient) *Listing {
	if rc == nil {
		return nil
	}
	return &Listing{redis: rc}
}

// Lookup returns the cached JSON body for key, or ("", false) on a miss.
func (l *Listing) Lookup(ctx context.Context, key string) (string, bool) {
	if l == nil {
		return "", false
	}
	val, err := l.redis.Get(ctx, key)
	if err == redis.Nil {
		middleware.RecordCacheMiss("listing")
		return "", false
	}
	if err != nil {
		middleware.RecordCacheMiss("listing")
		logger.Log.Warn("cache lookup failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", false
	}
	middleware.RecordCacheHit("listing")
	return val, true
}

// Store caches a serialized listing body. Failures are logged and ignored;
// the database remains the source of truth.
func (l *Listing) Store(ctx context.Context, key string, body []byte) {
	if l == nil {
		return
	}
	if err := l.redis.SetEx(ctx, key, body, listingTTL); err != nil {
		logger.Log.Warn("cache store failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// Invalidate drops the given listing keys. Called inside the mutation
// handlers after the transaction commits.
func (l *Listing) Invalidate(ctx context.Context, keys ...string) {
	if l == nil || len(keys) == 0 {
		return
	}
	if err := l.redis.Del(ctx, keys...); err != nil {
		logger.Log.Warn("cache invalidation failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}
