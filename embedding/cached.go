package embedding

import (
	"context"
	"slices"

	"github.com/hupe1980/vecstore/internal/cache"
)

// Cached remembers query embeddings so repeated searches skip the provider.
// Document embeddings are passed through uncached.
type Cached struct {
	Provider
	lru *cache.LRU[string, []float32]
}

// NewCached wraps p with an LRU cache of at most size query vectors.
func NewCached(p Provider, size int) *Cached {
	return &Cached{Provider: p, lru: cache.NewLRU[string, []float32](size)}
}

func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lru.Get(text); ok {
		return slices.Clone(v), nil
	}

	v, err := c.Provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.lru.Set(text, slices.Clone(v))
	return v, nil
}

// Stats returns the cache hit and miss counters.
func (c *Cached) Stats() (hits, misses int64) { return c.lru.Stats() }
