// Package cache implements the sharded LRU cache of §4.1: a fixed array
// of independently-locked shards keyed by a fast hash of a canonical
// path string, holding cheaply clonable references to immutable values
// (rendered pages, directory listings).
package cache

import (
	"hash/maphash"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/lumen/internal/metrics"
)

// ShardCount is S in §4.1.
const ShardCount = 16

// Sharded is a concurrent, bounded LRU cache keyed by string (always a
// canonical filesystem path in this server). V should be a cheap handle
// to immutable data, typically a struct wrapping a pointer.
type Sharded[V any] struct {
	shards [ShardCount]*shard[V]
	seed   maphash.Seed
	name   string
}

type shard[V any] struct {
	mu    sync.Mutex
	items *lru.Cache[string, V]
}

// New creates a sharded cache with total capacity capacity, split evenly
// across ShardCount shards (each shard holds at least 1 entry, per §3's
// invariant `max(1, max_cache_items / SHARD_COUNT)`).
func New[V any](capacity int) *Sharded[V] {
	perShard := capacity / ShardCount
	if perShard < 1 {
		perShard = 1
	}

	c := &Sharded[V]{seed: maphash.MakeSeed()}
	for i := range c.shards {
		items, err := lru.New[string, V](perShard)
		if err != nil {
			// Only returned for capacity <= 0, which perShard excludes.
			panic(err)
		}
		c.shards[i] = &shard[V]{items: items}
	}
	return c
}

// Named tags c with a name used to label its hit/miss counters in
// internal/metrics, and returns c for chaining at construction time.
// An unnamed cache (the zero value of name) still works but is not
// reflected in metrics — used by tests that don't care about
// observability.
func (c *Sharded[V]) Named(name string) *Sharded[V] {
	c.name = name
	return c
}

func (c *Sharded[V]) shardFor(k string) *shard[V] {
	h := maphash.String(c.seed, k)
	return c.shards[h%ShardCount]
}

// Get returns the cached value for k, if present. Linearizable within
// the owning shard; no ordering guarantee across shards (§4.1).
func (c *Sharded[V]) Get(k string) (V, bool) {
	s := c.shardFor(k)
	s.mu.Lock()
	v, ok := s.items.Get(k)
	s.mu.Unlock()

	if c.name != "" {
		if ok {
			metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
		} else {
			metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		}
	}
	return v, ok
}

// Put stores v under k, evicting the shard's least-recently-used entry
// if the shard is at capacity.
func (c *Sharded[V]) Put(k string, v V) {
	s := c.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Add(k, v)
}

// Clear empties every shard. Called whenever the theme environment is
// replaced (§4.8 step 4, invariant in §3).
func (c *Sharded[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.items.Purge()
		s.mu.Unlock()
	}
}
