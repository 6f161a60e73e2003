package cache

import (
	"context"
	"time"
)

// Backend is the key/value substrate for rate limiting. Incr must be atomic
// with respect to concurrent callers on the same key: the first call on an
// absent or expired key initializes the counter to 1 and arms the TTL;
// later calls inside the window increment without resetting the expiry.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close() error
}
