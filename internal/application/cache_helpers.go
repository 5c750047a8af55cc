package application

import (
	"context"
	"encoding/json"
	"time"

	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// fetchCached looks up key and decodes the snapshot into T. Any cache error
// (including a degraded cache) and any decode failure are treated as a miss:
// the read path must keep serving from the store of record regardless of
// cache health, and a stale snapshot schema must not wedge reads.
func fetchCached[T any](ctx context.Context, cache domain.CacheStore, logger domain.Logger, key string) (T, bool) {
	var zero T
	raw, found, err := cache.Get(ctx, key)
	if err != nil || !found {
		return zero, false
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		logger.Warn(ctx, "Discarding undecodable cache snapshot", "key", key, "error", err.Error())
		return zero, false
	}
	return value, true
}

// storeCached writes a snapshot under key with the given TTL. Failures are
// swallowed: populating the cache is an optimization, never a requirement.
func storeCached(ctx context.Context, cache domain.CacheStore, logger domain.Logger, key string, value any, ttl time.Duration) {
	if err := cache.Set(ctx, key, value, ttl); err != nil {
		logger.Debug(ctx, "Cache population skipped", "key", key, "error", err.Error())
	}
}

// invalidate removes the given keys and expands the given patterns. It never
// fails the surrounding mutation: stale entries left behind by a degraded or
// unreachable cache expire by TTL.
func invalidate(ctx context.Context, cache domain.CacheStore, logger domain.Logger, keys []string, patterns ...string) {
	if len(keys) > 0 {
		if err := cache.Delete(ctx, keys...); err != nil {
			logger.Warn(ctx, "Cache invalidation incomplete; stale entries expire by TTL", "keys", keys, "error", err.Error())
		}
	}
	for _, pattern := range patterns {
		if err := cache.DeleteByPattern(ctx, pattern); err != nil {
			logger.Warn(ctx, "Cache invalidation incomplete; stale entries expire by TTL", "pattern", pattern, "error", err.Error())
		}
	}
}

// notify publishes fire-and-forget; the publisher logs its own failures.
func notify(ctx context.Context, publisher domain.EventPublisher, targetUserID string, content domain.NotificationContent) {
	_ = publisher.Publish(ctx, domain.NotificationEvent{TargetUserID: targetUserID, Content: content})
}
