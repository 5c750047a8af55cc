package domain

import (
	"context"
	"time"
)

// CacheStore is the read-through cache over the remote key-value store.
// A miss is a normal outcome, not an error: Get returns (nil, false, nil)
// when the key is absent or expired. Expiry is enforced by the backing
// store itself, never by callers.
//
// Set and the delete operations are best-effort from the caller's point of
// view: a failed invalidation or repopulation is logged by the adapter and
// must never abort the read/write path that triggered it.
type CacheStore interface {
	// Get returns the raw serialized payload for key, with found=false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set serializes value as JSON and stores it under key with the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the given keys; absent keys are a no-op.
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPattern enumerates keys matching the glob-style pattern and
	// deletes them as a batch. Used because one mutation can invalidate every
	// cached page/limit permutation of a listing.
	DeleteByPattern(ctx context.Context, pattern string) error
}
