// Package cache provides a generic TTL-expiring cache with single-flight
// refresh semantics: at most one producer invocation is in flight per
// key at any time, and concurrent readers either observe the refreshed
// value or fall back to a bounded wait plus a stale read.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/maypok86/otter"
	"go.uber.org/zap"
)

// maxWait bounds how long a Get waits on someone else's in-flight
// refresh before giving up and returning whatever is on hand.
const maxWait = 10 * time.Second

// Producer computes the value for key. Errors are not cached; a failed
// refresh leaves the previous value (if any) in place.
type Producer[K comparable, V any] func(ctx context.Context, key K) (V, error)

type record[V any] struct {
	mu         sync.Mutex
	value      V
	hasValue   bool
	insertedAt time.Time
	refreshing chan struct{} // non-nil while a refresh is in flight; closed on completion
}

// Cache is a keyed, TTL-expiring, single-flight memoization layer.
// Storage is bounded by a size-limited otter cache so a long-running process
// with many distinct key tuples (e.g. node-list permutations) doesn't
// grow its record set without bound; entries within the bound still
// honor their own TTL independent of eviction order.
type Cache[K comparable, V any] struct {
	name     string
	timeout  time.Duration
	producer Producer[K, V]
	logger   *zap.SugaredLogger

	store otter.Cache[K, *record[V]]
	// newKeyMu serializes the check-then-insert in recordFor so two
	// concurrent first-time Gets for the same key can't each create
	// their own record.
	newKeyMu sync.Mutex
}

// New builds a Cache named name (used only in log lines), with the given
// TTL and producer, bounded to maxKeys distinct keys.
func New[K comparable, V any](name string, timeout time.Duration, maxKeys int, producer Producer[K, V], logger *zap.SugaredLogger) (*Cache[K, V], error) {
	store, err := otter.MustBuilder[K, *record[V]](maxKeys).
		Cost(func(_ K, _ *record[V]) uint32 { return 1 }).
		Build()
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{
		name:     name,
		timeout:  timeout,
		producer: producer,
		logger:   logger,
		store:    store,
	}, nil
}

func (c *Cache[K, V]) recordFor(key K) *record[V] {
	if r, ok := c.store.Get(key); ok {
		return r
	}
	c.newKeyMu.Lock()
	defer c.newKeyMu.Unlock()
	if r, ok := c.store.Get(key); ok {
		return r
	}
	r := &record[V]{}
	c.store.Set(key, r)
	return r
}

// Expired reports whether key's entry is absent or past its TTL. Used
// externally as a predicate, independent of triggering a refresh.
func (c *Cache[K, V]) Expired(key K) bool {
	r := c.recordFor(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.hasValue || time.Since(r.insertedAt) > c.timeout
}

// Get returns key's cached value, refreshing it first if expired.
// Single-flight: if a refresh for key is already in progress, this call
// waits up to maxWait for it to publish, then returns the (possibly
// still-stale) value rather than starting a second producer invocation.
// The exception is a key with no value at all: if the in-flight refresh
// published nothing (it failed) or the wait timed out, this call claims
// the refresh slot and runs the producer itself, so after a timeout two
// producer invocations for the key can overlap.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	r := c.recordFor(key)

	r.mu.Lock()
	if r.hasValue && time.Since(r.insertedAt) <= c.timeout && r.refreshing == nil {
		v := r.value
		r.mu.Unlock()
		return v, nil
	}

	if ch := r.refreshing; ch != nil {
		staleVal, hasStale := r.value, r.hasValue
		r.mu.Unlock()

		select {
		case <-ch:
			r.mu.Lock()
			v, hv := r.value, r.hasValue
			r.mu.Unlock()
			if hv {
				return v, nil
			}
		case <-time.After(maxWait):
			if c.logger != nil {
				c.logger.Debugw("cache: gave up waiting on in-flight refresh, serving stale", "cache", c.name)
			}
		}
		if hasStale {
			return staleVal, nil
		}
		// No stale value to fall back to: block on our own refresh below.
		r.mu.Lock()
	}

	// We are now the single flight: claim the refresh slot.
	ch := make(chan struct{})
	r.refreshing = ch
	r.mu.Unlock()

	v, err := c.producer(ctx, key)

	r.mu.Lock()
	r.refreshing = nil
	if err == nil {
		r.value = v
		r.insertedAt = time.Now()
		r.hasValue = true
	} else if c.logger != nil {
		c.logger.Warnw("cache: refresh failed, keeping stale value if any", "cache", c.name, "error", err)
	}
	result, hasValue := r.value, r.hasValue
	r.mu.Unlock()
	close(ch)

	if err != nil && !hasValue {
		var zero V
		return zero, err
	}
	return result, nil
}

// Invalidate clears every entry, forcing the next Get for any key to
// refresh.
func (c *Cache[K, V]) Invalidate() {
	c.store.Clear()
}
