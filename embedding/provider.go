// Package embedding defines the text-to-vector providers used by the store.
//
// A Provider is treated as a deterministic black box: for a fixed model the
// same text yields the same vector. Wrappers add batching and rate limiting
// on top of any provider.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrEmptyInput is returned when a provider is called without any text.
var ErrEmptyInput = errors.New("embedding: empty input")

// Provider turns text into fixed-dimension vectors.
type Provider interface {
	// EmbedDocuments embeds texts, returning one vector per text in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension is the length of every returned vector.
	Dimension() int

	// Model identifies the embedding model. Stores are keyed by it.
	Model() string
}

// DefaultBatchSize is the sub-batch size used by NewBatched when size <= 0.
const DefaultBatchSize = 32

// Batched splits document embedding into bounded sub-batches.
type Batched struct {
	Provider
	size int
}

// NewBatched wraps p so EmbedDocuments never sends more than size texts upstream.
func NewBatched(p Provider, size int) *Batched {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batched{Provider: p, size: size}
}

// BatchSize returns the sub-batch size.
func (b *Batched) BatchSize() int { return b.size }

// EmbedDocuments embeds texts in sub-batches, preserving input order.
func (b *Batched) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+b.size, len(texts))
		vecs, err := b.Provider.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding: batch [%d:%d]: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding: batch [%d:%d] returned %d vectors", start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// RateLimited gates every upstream call on a token bucket.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps p so each upstream call waits on limiter.
func NewRateLimited(p Provider, limiter *rate.Limiter) *RateLimited {
	return &RateLimited{Provider: p, limiter: limiter}
}

func (r *RateLimited) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.EmbedDocuments(ctx, texts)
}

func (r *RateLimited) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.EmbedQuery(ctx, text)
}
