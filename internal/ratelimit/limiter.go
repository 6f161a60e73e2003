package ratelimit

import (
	"context"
	"time"

	"github.com/guildkit/ticketd/internal/cache"
)

// Result reports the outcome of one fixed-window hit.
type Result struct {
	Allowed bool
	Current int64
	Limit   int64
}

// Limiter counts hits in fixed, non-overlapping windows on top of the cache
// backend's atomic increment. A burst straddling a window boundary can admit
// up to twice the limit across the boundary; that is the accepted trade-off
// for O(1) memory per key. A disallowed hit still increments, so the count
// keeps climbing until the window expires.
type Limiter struct {
	cache cache.Backend
}

// NewLimiter builds a limiter over the given backend.
func NewLimiter(backend cache.Backend) *Limiter {
	return &Limiter{cache: backend}
}

// Hit registers one hit against key and reports whether it is within limit.
func (l *Limiter) Hit(ctx context.Context, key string, limit int64, windowSeconds int) (Result, error) {
	current, err := l.cache.Incr(ctx, key, time.Duration(windowSeconds)*time.Second)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed: current <= limit,
		Current: current,
		Limit:   limit,
	}, nil
}
