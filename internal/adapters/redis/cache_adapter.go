package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/metrics"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

// scanBatchSize bounds both the SCAN page size and the number of keys per DEL
// during pattern invalidation.
const scanBatchSize = 100

// CacheAdapter implements domain.CacheStore on top of a shared Redis client.
//
// The client itself retries transient failures with a fixed backoff and a
// capped attempt count (configured in the client provider). On top of that,
// the adapter tracks consecutive remote failures: once the budget is
// exhausted it latches into a degraded state and every further operation
// fails fast with domain.ErrCacheDegraded instead of queueing more remote
// attempts. Writes keep succeeding upstream; only caching is lost.
type CacheAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger

	maxFailures int32
	consecutive atomic.Int32
	degraded    atomic.Bool
}

// NewCacheAdapter creates a new CacheAdapter.
func NewCacheAdapter(redisClient *redis.Client, cfgProvider config.Provider, logger domain.Logger) *CacheAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewCacheAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewCacheAdapter")
	}
	maxFailures := cfgProvider.Get().Redis.MaxRetries
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &CacheAdapter{
		redisClient: redisClient,
		logger:      logger,
		maxFailures: int32(maxFailures),
	}
}

// Degraded reports whether the adapter has given up on the remote store.
func (a *CacheAdapter) Degraded() bool {
	return a.degraded.Load()
}

func (a *CacheAdapter) guard(ctx context.Context, operation string) error {
	if a.degraded.Load() {
		metrics.ObserveCacheOperation(operation, "degraded")
		return domain.ErrCacheDegraded
	}
	return nil
}

// observe updates the failure latch after a remote call. Context
// cancellation is the caller's doing and does not count against the budget.
func (a *CacheAdapter) observe(ctx context.Context, operation string, err error) {
	if err == nil {
		a.consecutive.Store(0)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	failures := a.consecutive.Add(1)
	if failures >= a.maxFailures && a.degraded.CompareAndSwap(false, true) {
		a.logger.Error(ctx, "Cache store retry budget exhausted, entering degraded state",
			"operation", operation,
			"consecutive_failures", failures,
		)
	}
}

// Get retrieves the raw payload for key. A miss returns (nil, false, nil).
func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := a.guard(ctx, "get"); err != nil {
		return nil, false, err
	}
	val, err := a.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		a.consecutive.Store(0)
		metrics.ObserveCacheOperation("get", "miss")
		a.logger.Debug(ctx, "Cache miss", "key", key)
		return nil, false, nil
	}
	a.observe(ctx, "get", err)
	if err != nil {
		metrics.ObserveCacheOperation("get", "error")
		a.logger.Error(ctx, "Failed to get value from cache", "key", key, "error", err.Error())
		return nil, false, fmt.Errorf("redis GET for key '%s' failed: %w", key, err)
	}
	metrics.ObserveCacheOperation("get", "hit")
	a.logger.Debug(ctx, "Cache hit", "key", key, "bytes", len(val))
	return val, true, nil
}

// Set serializes value as JSON and stores it with the given TTL.
func (a *CacheAdapter) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := a.guard(ctx, "set"); err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		a.logger.Error(ctx, "Failed to marshal value for caching", "key", key, "error", err.Error())
		return fmt.Errorf("failed to marshal value for key '%s': %w", key, err)
	}
	err = a.redisClient.Set(ctx, key, payload, ttl).Err()
	a.observe(ctx, "set", err)
	if err != nil {
		metrics.ObserveCacheOperation("set", "error")
		a.logger.Error(ctx, "Failed to set value in cache", "key", key, "ttl", ttl.String(), "error", err.Error())
		return fmt.Errorf("redis SET for key '%s' failed: %w", key, err)
	}
	metrics.ObserveCacheOperation("set", "ok")
	a.logger.Debug(ctx, "Cached value", "key", key, "ttl", ttl.String())
	return nil
}

// Delete removes the given keys. Absent keys are a no-op.
func (a *CacheAdapter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := a.guard(ctx, "delete"); err != nil {
		return err
	}
	err := a.redisClient.Del(ctx, keys...).Err()
	a.observe(ctx, "delete", err)
	if err != nil {
		metrics.ObserveCacheOperation("delete", "error")
		a.logger.Error(ctx, "Failed to delete cache keys", "keys", keys, "error", err.Error())
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	metrics.ObserveCacheOperation("delete", "ok")
	return nil
}

// DeleteByPattern enumerates keys matching the glob-style pattern with SCAN
// and deletes them in batches. SCAN is used instead of KEYS so invalidation
// never blocks the store while walking a large key space.
func (a *CacheAdapter) DeleteByPattern(ctx context.Context, pattern string) error {
	if err := a.guard(ctx, "delete_pattern"); err != nil {
		return err
	}

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := a.redisClient.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		a.observe(ctx, "delete_pattern", err)
		if err != nil {
			metrics.ObserveCacheOperation("delete_pattern", "error")
			a.logger.Error(ctx, "Failed to scan cache keys for pattern", "pattern", pattern, "error", err.Error())
			return fmt.Errorf("redis SCAN for pattern '%s' failed: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := a.redisClient.Del(ctx, keys...).Err(); err != nil {
				a.observe(ctx, "delete_pattern", err)
				metrics.ObserveCacheOperation("delete_pattern", "error")
				a.logger.Error(ctx, "Failed to delete scanned cache keys", "pattern", pattern, "batch_size", len(keys), "error", err.Error())
				return fmt.Errorf("redis DEL for pattern '%s' failed: %w", pattern, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	metrics.ObserveCacheOperation("delete_pattern", "ok")
	a.logger.Debug(ctx, "Invalidated cache keys by pattern", "pattern", pattern, "deleted", deleted)
	return nil
}
