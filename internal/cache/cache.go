// Package cache provides a small time-based value cache. It holds one
// value per cache, which is all the report jobs need: the alias table is
// fetched once and reused across jobs within its freshness window.
package cache

import (
	"sync"
	"time"
)

// Value caches a single value of type T for a fixed TTL. The zero value
// is not usable; construct with New.
type Value[T any] struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	value    T
	storedAt time.Time
	ok       bool
}

// New builds a cache whose entries expire ttl after they are stored.
func New[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value if it is still fresh.
func (c *Value[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok || c.now().Sub(c.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v and resets its freshness window.
func (c *Value[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = v
	c.storedAt = c.now()
	c.ok = true
}

// GetOrFill returns the cached value, calling fill to populate the cache
// when it is stale or empty. A fill error leaves the cache untouched.
func (c *Value[T]) GetOrFill(fill func() (T, error)) (T, error) {
	if v, ok := c.Get(); ok {
		return v, nil
	}
	v, err := fill()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(v)
	return v, nil
}
