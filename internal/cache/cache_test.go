package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetPutClear(t *testing.T) {
	c := New[string](32)

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Put("a.md", "<h1>A</h1>")
	v, ok := c.Get("a.md")
	require.True(t, ok)
	require.Equal(t, "<h1>A</h1>", v)

	c.Clear()
	_, ok = c.Get("a.md")
	require.False(t, ok)
}

func TestCapacityFloorIsOnePerShard(t *testing.T) {
	// capacity smaller than ShardCount must still allow every shard to
	// hold at least one item (§3 invariant). Keys are chosen so that each
	// shard receives exactly one; arbitrary keys would collide on some
	// shard and evict each other.
	c := New[int](1)
	keys := make([]string, ShardCount)
	for i, found := 0, 0; found < ShardCount; i++ {
		k := fmt.Sprintf("key-%d", i)
		s := c.shardFor(k)
		for j := range c.shards {
			if c.shards[j] == s && keys[j] == "" {
				keys[j] = k
				found++
			}
		}
	}
	for i, k := range keys {
		c.Put(k, i)
	}
	for i, k := range keys {
		v, ok := c.Get(k)
		require.True(t, ok, "%s should still be present", k)
		require.Equal(t, i, v)
	}
}

func TestEvictionBoundsTotalItems(t *testing.T) {
	// Force everything into a single shard's worth of capacity is hard
	// to guarantee via hashing, so instead verify the total item count
	// invariant holds: capacity N spread over shards never silently
	// grows unbounded.
	c := New[int](ShardCount) // 1 per shard
	for i := 0; i < 1000; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i)
	}
	present := 0
	for i := 0; i < 1000; i++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", i)); ok {
			present++
		}
	}
	require.LessOrEqual(t, present, ShardCount)
}
