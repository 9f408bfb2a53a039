package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a") // a is now most recent
	assert.True(t, ok)

	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted")

	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUUpdateAndInvalidate(t *testing.T) {
	c := NewLRU[string, int](4)
	c.Set("x1", 1)
	c.Set("x1", 10)
	c.Set("y1", 2)

	v, _ := c.Get("x1")
	assert.Equal(t, 10, v)

	c.Invalidate(func(k string) bool { return k[0] == 'x' })
	_, ok := c.Get("x1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestLRUZeroCapacity(t *testing.T) {
	c := NewLRU[int, int](0)
	c.Set(1, 1)
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRUConcurrent(t *testing.T) {
	c := NewLRU[string, int](16)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*i)%32)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
