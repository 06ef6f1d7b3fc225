package embedder

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Run("get returns copy", func(t *testing.T) {
		c := NewCache(10)
		c.Set("hello", []float32{1, 2, 3})

		got, ok := c.Get("hello")
		require.True(t, ok)
		got[0] = 99

		again, _ := c.Get("hello")
		assert.Equal(t, float32(1), again[0])
	})

	t.Run("miss", func(t *testing.T) {
		c := NewCache(10)
		_, ok := c.Get("absent")
		assert.False(t, ok)
	})

	t.Run("empty vectors are not stored", func(t *testing.T) {
		c := NewCache(10)
		c.Set("x", nil)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("default size", func(t *testing.T) {
		c := NewCache(0)
		for i := 0; i < DefaultCacheSize+50; i++ {
			c.Set(fmt.Sprintf("text-%d", i), []float32{float32(i)})
		}
		assert.Equal(t, DefaultCacheSize, c.Len())
	})

	t.Run("clear", func(t *testing.T) {
		c := NewCache(10)
		c.Set("a", []float32{1})
		c.Clear()
		assert.Equal(t, 0, c.Len())
	})
}

func TestCacheNeverExceedsCapacity(t *testing.T) {
	c := NewCache(1000)
	for i := 0; i < 2500; i++ {
		c.Set(fmt.Sprintf("fragment %d", i), []float32{1})
		require.LessOrEqual(t, c.Len(), 1000)
	}
	assert.Equal(t, 1000, c.Len())
}

func TestCacheEvictsOldestInserted(t *testing.T) {
	c := NewCache(3)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})

	// Reading and re-inserting "a" must not protect it from eviction
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("a", []float32{100})

	c.Set("d", []float32{4})

	_, ok = c.Get("a")
	assert.False(t, ok, "oldest insertion should be evicted")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
}

func TestCacheSetKeepsFirstValue(t *testing.T) {
	c := NewCache(3)
	c.Set("a", []float32{1})
	c.Set("a", []float32{2})

	got, _ := c.Get("a")
	assert.Equal(t, []float32{1}, got)
}

func TestCacheKey(t *testing.T) {
	short := "func main() {}"
	assert.Equal(t, short, CacheKey(short))

	long := strings.Repeat("x", 250)
	assert.Len(t, CacheKey(long), CacheKeyLength)

	// Texts sharing the first 200 characters share an entry
	c := NewCache(10)
	c.Set(long+"tail-a", []float32{1})
	got, ok := c.Get(long + "tail-b")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, got)

	multibyte := strings.Repeat("é", 210)
	assert.Equal(t, CacheKeyLength, len([]rune(CacheKey(multibyte))))
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(100)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("%d-%d", g, i)
				c.Set(key, []float32{float32(i)})
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 100)
}
