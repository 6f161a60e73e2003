package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryValue struct {
	value     string
	counter   int64
	expiresAt time.Time
}

func (v memoryValue) expired(now time.Time) bool {
	return !v.expiresAt.IsZero() && !now.Before(v.expiresAt)
}

// MemoryBackend is an in-process Backend guarded by a single mutex. The lock
// is held only for map access, never across I/O. Expiry is lazy: stale
// entries are dropped on read.
type MemoryBackend struct {
	mu    sync.Mutex
	store map[string]memoryValue
	now   func() time.Time
}

// MemoryOption customizes a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithNowFunc overrides the time source, for deterministic window tests.
func WithNowFunc(now func() time.Time) MemoryOption {
	return func(m *MemoryBackend) {
		m.now = now
	}
}

// NewMemoryBackend constructs an empty in-process backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	m := &MemoryBackend{
		store: make(map[string]memoryValue),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.store[key]
	if !ok {
		return "", false, nil
	}
	if entry.expired(m.now()) {
		delete(m.store, key)
		return "", false, nil
	}
	if entry.value == "" && entry.counter > 0 {
		return strconv.FormatInt(entry.counter, 10), true, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryValue{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.store[key] = entry
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

func (m *MemoryBackend) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	entry, ok := m.store[key]
	if !ok || entry.expired(now) {
		fresh := memoryValue{counter: 1}
		if ttl > 0 {
			fresh.expiresAt = now.Add(ttl)
		}
		m.store[key] = fresh
		return 1, nil
	}
	entry.counter++
	m.store[key] = entry
	return entry.counter, nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]memoryValue)
	return nil
}
