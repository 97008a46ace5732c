package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_SetAndGet(t *testing.T) {
	c := NewLRU[int](4)

	assert.True(t, c.Set("a", 1))
	assert.False(t, c.Set("a", 2)) // update, not insert

	got, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, 2, got)

	_, found = c.Get("missing")
	assert.False(t, found)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string](2)
	c.Set("a", "1")
	c.Set("b", "2")

	// Touch "a" so "b" is the eviction candidate.
	_, found := c.Get("a")
	require.True(t, found)

	c.Set("c", "3")

	_, found = c.Get("b")
	assert.False(t, found)
	_, found = c.Get("a")
	assert.True(t, found)
	_, found = c.Get("c")
	assert.True(t, found)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_OnEvictCallback(t *testing.T) {
	c := NewLRU[int](1)

	var evictedKey string
	var evictedValue int
	c.OnEvict(func(key string, value int) {
		evictedKey = key
		evictedValue = value
	})

	c.Set("a", 10)
	c.Set("b", 20)

	assert.Equal(t, "a", evictedKey)
	assert.Equal(t, 10, evictedValue)
}

func TestLRU_Statistics(t *testing.T) {
	c := NewLRU[int](1)
	c.Set("a", 1)

	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Set("b", 2) // evicts "a"

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.Equal(t, int64(1), stats.Evictions())
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c := NewLRU[int](4)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, found := c.Get("b")
	assert.False(t, found)
}

func TestLRU_DefaultSize(t *testing.T) {
	c := NewLRU[int](0)
	for i := 0; i < 200; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	assert.Equal(t, 128, c.Len())
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c := NewLRU[int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d", i%32)
				c.Set(key, g*1000+i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 64)
}
