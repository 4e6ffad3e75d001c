// Package cache holds slow-changing lookup data, such as dropdown values,
// for a bounded time.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Observer is told about hits and misses.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

type options struct {
	name     string
	now      func() time.Time
	observer Observer
}

type Option func(*options)

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe map whose entries expire after a fixed TTL.
// Concurrent loads of one missing key share a single loader call.
type TTLCache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
	opts  options
	group singleflight.Group
}

func New[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	o := options{name: "cache", now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		opts:  o,
	}
}

func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.opts.now().Before(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value under key and drops every expired entry, so keys that
// are never read again do not pile up.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	for k, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, k)
		}
	}
	c.items[key] = item[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *TTLCache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		c.hit()
		return value, nil
	}
	c.miss()

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

func (c *TTLCache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]item[V])
}

// Size counts stored entries. Entries that expired since the last Set are
// still counted.
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func (c *TTLCache[V]) hit() {
	if c.opts.observer != nil {
		c.opts.observer.CacheHit(c.opts.name)
	}
}

func (c *TTLCache[V]) miss() {
	if c.opts.observer != nil {
		c.opts.observer.CacheMiss(c.opts.name)
	}
}
