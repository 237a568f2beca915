package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache: key not found")

// Cache is the key-value boundary consumed by the cache-aside repositories.
// It is a best-effort accelerator: callers must treat every error as a miss
// and fall back to the store.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete returns the number of keys removed (0 or 1). Deleting a
	// missing key is not an error.
	Delete(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	// TTL reports the remaining lifetime: -1 if the key has no TTL,
	// -2 if the key does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
