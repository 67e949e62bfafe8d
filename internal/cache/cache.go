// Package cache provides a process-local TTL cache used to shield the
// aggregation and report paths from repeated expensive recomputation.
//
// State is process-local and lost on restart; this is not a distributed
// cache. Entries expire at an absolute deadline, are lazily evicted on read
// and actively reclaimed by a single periodic sweep goroutine that steps the
// shards round-robin.
package cache

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// MetricsRecorder receives cache activity for observability.
type MetricsRecorder interface {
	CacheHit()
	CacheMiss()
	EntriesEvicted(int)
}

// ComputeFn produces a value on a cache miss, typically by calling the
// record store. Failures propagate to the caller and nothing is cached.
type ComputeFn func(ctx context.Context) (any, error)

// Cache is a sharded expiring key/value store. Construct one per concern at
// process start and inject it; independent instances keep tests isolated.
type Cache struct {
	shards          []*shard
	nextShard       int
	sweepInterval   time.Duration
	clock           Clock
	metricsRecorder MetricsRecorder
	group           singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock swaps the clock the cache uses. Useful for testing.
func WithClock(clock Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithSweepInterval sets how often the sweeper scans a shard for expired entries.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Cache) { c.sweepInterval = interval }
}

// WithMetrics makes the cache report hits, misses and evictions.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(c *Cache) { c.metricsRecorder = recorder }
}

// New creates a cache with numShards shards. numShards must be greater than zero.
func New(numShards int, opts ...Option) *Cache {
	if numShards < 1 {
		panic("cache: numShards must be greater than zero")
	}

	c := &Cache{
		sweepInterval: time.Minute,
		clock:         NewClock(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.shards = make([]*shard, numShards)
	for i := range c.shards {
		c.shards[i] = newShard(c.clock)
	}
	return c
}

// StartSweeper launches the background eviction goroutine. It steps one
// shard per tick so a large cache never holds a lock for long, and stops
// when ctx is cancelled. Lazy eviction on read remains the correctness
// backstop regardless of sweep cadence.
func (c *Cache) StartSweeper(ctx context.Context) {
	ticker, stop := c.clock.NewTicker(c.sweepInterval)
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker:
				evicted := c.shards[c.nextShard].evictExpired()
				c.nextShard = (c.nextShard + 1) % len(c.shards)
				if c.metricsRecorder != nil && evicted > 0 {
					c.metricsRecorder.EntriesEvicted(evicted)
				}
			}
		}
	}()
}

// Set stores value under key with expiration now + ttl, overwriting any
// existing entry and its expiration.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.getShard(key).set(key, value, ttl)
}

// Get returns the value if present and unexpired; the second return value
// reports presence. Absence is not an error.
func (c *Cache) Get(key string) (any, bool) {
	value, ok := c.getShard(key).get(key)
	c.reportHit(ok)
	return value, ok
}

// Get retrieves a value from the cache and asserts it to the desired type.
func Get[T any](c *Cache, key string) (T, bool) {
	value, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return typed, true
}

// Has reports whether key is present and unexpired.
func (c *Cache) Has(key string) bool {
	_, ok := c.getShard(key).get(key)
	return ok
}

// Delete removes key unconditionally; removing an absent key is a no-op.
func (c *Cache) Delete(key string) {
	c.getShard(key).delete(key)
}

// Size returns the number of entries currently tracked, including expired
// ones not yet lazily evicted. An approximation, not a live count.
func (c *Cache) Size() int {
	var sum int
	for _, s := range c.shards {
		sum += s.size()
	}
	return sum
}

// GetOrSet returns the cached value for key if fresh. Otherwise it invokes
// compute, stores the result with the given ttl, and returns it. The second
// return value reports whether the cache satisfied the call without
// recomputation. Concurrent misses for the same key share a single compute
// invocation; compute errors propagate uncached.
func (c *Cache) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute ComputeFn) (any, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}

	var fromCache bool
	value, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have filled the entry while we waited
		// for the flight slot.
		if value, ok := c.getShard(key).get(key); ok {
			fromCache = true
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, fromCache, nil
}

func (c *Cache) getShard(key string) *shard {
	hash := xxhash.Sum64String(key)
	return c.shards[hash%uint64(len(c.shards))]
}

func (c *Cache) reportHit(hit bool) {
	if c.metricsRecorder == nil {
		return
	}
	if hit {
		c.metricsRecorder.CacheHit()
		return
	}
	c.metricsRecorder.CacheMiss()
}
