package vecstore

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecstore/embedding"
)

// SearchResult is a record returned by a similarity search.
type SearchResult struct {
	Record

	// Distance is the squared L2 distance to the query.
	Distance float32

	// Score is ScoreFromDistance(Distance).
	Score float32
}

// SimilaritySearch embeds query once and returns up to k nearest live records.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, optFns ...CallOption) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}

	vec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vecstore: embed query: %w", err)
	}
	return s.SimilaritySearchByVector(ctx, vec, k, optFns...)
}

// SimilaritySearchByVector returns up to k nearest live records in ascending
// distance order.
//
// With a namespace or filter, k*OverFetchFactor candidates (capped at the
// index size) are fetched and filtered, so a small namespace may yield fewer
// than k results even when more members exist.
func (s *Store) SimilaritySearchByVector(ctx context.Context, vec []float32, k int, optFns ...CallOption) ([]SearchResult, error) {
	co := s.callOptions(optFns)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.search(ctx, vec, k, co)
}

// BatchSimilaritySearch embeds all queries in one batched call and runs an
// independent search per query.
func (s *Store) BatchSimilaritySearch(ctx context.Context, queries []string, k int, optFns ...CallOption) ([][]SearchResult, error) {
	if len(queries) == 0 {
		return [][]SearchResult{}, nil
	}

	co := s.callOptions(optFns)

	vecs, err := embedding.NewBatched(s.provider, s.opts.batchSize).EmbedDocuments(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("vecstore: embed queries: %w", err)
	}
	if len(vecs) != len(queries) {
		return nil, fmt.Errorf("vecstore: provider returned %d vectors for %d queries", len(vecs), len(queries))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	out := make([][]SearchResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range vecs {
		g.Go(func() error {
			res, err := s.search(gctx, vecs[i], k, co)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// search must be called with the read lock held.
func (s *Store) search(ctx context.Context, vec []float32, k int, co callOptions) (results []SearchResult, err error) {
	start := time.Now()
	defer func() {
		s.opts.metricsCollector.RecordSearch(k, len(results), time.Since(start), err)
		s.logger.LogSearch(ctx, k, len(results), err)
	}()

	n := s.idx.Len()
	if k <= 0 || n == 0 {
		return []SearchResult{}, nil
	}

	q, err := s.prepareVector(vec)
	if err != nil {
		return nil, err
	}

	k = min(k, n)
	fetch := k
	if co.namespace != "" || co.filter != nil {
		fetch = min(k*s.opts.overFetchFactor, n)
	} else if deleted := n - s.catalog.Active(); deleted > 0 {
		fetch = min(k+deleted, n)
	}

	hits, err := s.idx.Search(ctx, q, fetch)
	if err != nil {
		return nil, translateError(fmt.Errorf("vecstore: index search: %w", err))
	}

	results = make([]SearchResult, 0, k)
	for _, h := range hits {
		rec, ok := s.catalog.Get(h.ID)
		if !ok || rec.Deleted {
			continue
		}
		if co.namespace != "" && !s.namespaces.Contains(co.namespace, h.ID) {
			continue
		}
		if co.filter != nil && !co.filter(rec) {
			continue
		}

		results = append(results, SearchResult{
			Record:   rec.Clone(),
			Distance: h.Distance,
			Score:    ScoreFromDistance(h.Distance),
		})
		if len(results) == k {
			break
		}
	}

	return results, nil
}
