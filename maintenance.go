package vecstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vecstore/catalog"
	"github.com/hupe1980/vecstore/embedding"
	"github.com/hupe1980/vecstore/index"
)

// Delete soft-deletes the records with the given ids and removes them from
// their namespace. Unknown and already deleted ids are ignored. It returns the
// number of records newly deleted.
func (s *Store) Delete(ctx context.Context, ids []string) (deleted int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	start := time.Now()
	defer func() {
		s.opts.metricsCollector.RecordDelete(deleted, time.Since(start), err)
		s.logger.LogDelete(ctx, len(ids), deleted, err)
	}()

	now := s.opts.now()
	for _, id := range ids {
		i, ok := s.catalog.IndexOf(id)
		if !ok || !s.catalog.MarkDeleted(i, now) {
			continue
		}
		if ns, ok := s.namespaces.Namespace(i); ok {
			s.namespaces.Unassign(ns, i)
		}
		deleted++
	}

	if deleted > 0 {
		err = s.persist(ctx)
	}
	return deleted, err
}

// GetByID returns the live record with the given id.
func (s *Store) GetByID(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.catalog.ByID(id)
	if !ok || r.Deleted {
		return Record{}, false
	}
	return r.Clone(), true
}

// GetByNamespace returns the live records of ns in insertion order.
func (s *Store) GetByNamespace(ns string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, i := range s.namespaces.Members(ns) {
		r, ok := s.catalog.Get(i)
		if !ok || r.Deleted {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// Stats describes the contents of a store.
type Stats struct {
	TotalVectors   int            `json:"total_vectors"`
	ActiveVectors  int            `json:"active_vectors"`
	DeletedVectors int            `json:"deleted_vectors"`
	Namespaces     map[string]int `json:"namespaces"`

	// EstimatedMemoryBytes is TotalVectors * Dimension * 4.
	EstimatedMemoryBytes int64 `json:"estimated_memory_bytes"`

	Dimension  int    `json:"dimension"`
	IndexType  string `json:"index_type"`
	IndexState string `json:"index_state"`
	Model      string `json:"model"`
}

// Stats returns counts and sizes of the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.idx.Len()
	active := s.catalog.Active()

	namespaces := make(map[string]int)
	for _, ns := range s.namespaces.Names() {
		n := 0
		for _, i := range s.namespaces.Members(ns) {
			if !s.catalog.IsDeleted(i) {
				n++
			}
		}
		if n > 0 {
			namespaces[ns] = n
		}
	}

	return Stats{
		TotalVectors:         total,
		ActiveVectors:        active,
		DeletedVectors:       total - active,
		Namespaces:           namespaces,
		EstimatedMemoryBytes: int64(total) * int64(s.dim) * 4,
		Dimension:            s.dim,
		IndexType:            s.idx.Kind().String(),
		IndexState:           s.idx.State().String(),
		Model:                s.key,
	}
}

// ComputeRelevance scores each text against query with CosineRelevance.
// It embeds both sides and does not consult the index.
func (s *Store) ComputeRelevance(ctx context.Context, query string, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return []float32{}, nil
	}

	q, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vecstore: embed query: %w", err)
	}
	docs, err := embedding.NewBatched(s.provider, s.opts.batchSize).EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vecstore: embed texts: %w", err)
	}

	out := make([]float32, len(docs))
	for i, d := range docs {
		if len(d) != len(q) {
			return nil, &ErrDimensionMismatch{Expected: len(q), Actual: len(d)}
		}
		out[i] = CosineRelevance(q, d)
	}
	return out, nil
}

// Clear drops all vectors and records and removes the persisted artifacts.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.reset(); err != nil {
		return err
	}
	if err := s.manager.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("vecstore: clear: %w", err)
	}
	s.logger.InfoContext(ctx, "store cleared")
	return nil
}

// CompactStats reports the effect of Compact.
type CompactStats struct {
	Before    int
	After     int
	Reclaimed int
}

// Compact rebuilds the index from live vectors only. Record ids, namespaces
// and metadata are kept; internal indices are renumbered densely.
// An ivf index is retrained from the live vectors when there are enough of
// them, otherwise it keeps its centroids.
func (s *Store) Compact(ctx context.Context) (stats CompactStats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stats, ErrClosed
	}

	stats.Before = s.idx.Len()
	defer func() {
		s.logger.LogCompact(ctx, stats.Before, stats.After, err)
	}()

	if s.catalog.Active() == stats.Before {
		stats.After = stats.Before
		return stats, nil
	}

	var (
		vecs    [][]float32
		records []catalog.Record
		spaces  []string
	)
	for i := range uint32(stats.Before) {
		if s.catalog.IsDeleted(i) {
			continue
		}
		v, ok := s.idx.Vector(i)
		if !ok {
			return stats, fmt.Errorf("vecstore: compact: vector %d missing", i)
		}
		r, _ := s.catalog.Get(i)
		ns, _ := s.namespaces.Namespace(i)

		vecs = append(vecs, v)
		records = append(records, r)
		spaces = append(spaces, ns)
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	fresh, err := s.rebuildIndex(ctx, vecs)
	if err != nil {
		return stats, err
	}

	ns := catalog.NewNamespaces()
	for i := range records {
		records[i].InternalIndex = uint32(i)
		if spaces[i] != "" {
			if err := ns.Assign(spaces[i], uint32(i)); err != nil {
				return stats, err
			}
		}
	}
	cat, err := catalog.Restore(records)
	if err != nil {
		return stats, fmt.Errorf("vecstore: compact: %w", err)
	}

	s.idx, s.catalog, s.namespaces = fresh, cat, ns
	stats.After = len(records)
	stats.Reclaimed = stats.Before - stats.After

	return stats, s.persist(ctx)
}

func (s *Store) rebuildIndex(ctx context.Context, vecs [][]float32) (index.Index, error) {
	var fresh index.Index
	if s.idx.Kind() == s.opts.indexKind {
		idx, err := s.newIndex()
		if err != nil {
			return nil, err
		}
		fresh = idx
	} else if c, ok := s.idx.(index.EmptyCloner); ok {
		fresh = c.CloneEmpty()
	} else {
		idx, err := index.New(s.idx.Kind(), s.dim, func(o *index.Options) { *o = s.opts.indexOptions })
		if err != nil {
			return nil, err
		}
		fresh = idx
	}

	if t, ok := fresh.(index.Trainer); ok && fresh.State() != index.StateReady {
		err := index.ErrInsufficientTrainingData
		if len(vecs) > 0 {
			err = t.Train(ctx, vecs)
		}
		if err != nil {
			c, ok := s.idx.(index.EmptyCloner)
			switch {
			case ok && s.idx.State() == index.StateReady:
				fresh = c.CloneEmpty()
			case len(vecs) > 0:
				return nil, fmt.Errorf("vecstore: compact: retrain: %w", err)
			}
		}
	}

	if len(vecs) > 0 {
		if _, err := fresh.Add(ctx, vecs); err != nil {
			return nil, translateError(fmt.Errorf("vecstore: compact: %w", err))
		}
	}
	return fresh, nil
}

// Train embeds texts and trains the index on them. Only ivf supports training;
// it must happen before the first AddTexts.
func (s *Store) Train(ctx context.Context, texts []string) error {
	vecs, err := embedding.NewBatched(s.provider, s.opts.batchSize).EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("vecstore: embed training texts: %w", err)
	}
	return s.TrainVectors(ctx, vecs)
}

// TrainVectors trains the index on precomputed vectors.
func (s *Store) TrainVectors(ctx context.Context, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	t, ok := s.idx.(index.Trainer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTrainingUnsupported, s.idx.Kind())
	}

	vecs, err := s.prepare(vectors)
	if err != nil {
		return err
	}
	if err := t.Train(ctx, vecs); err != nil {
		return translateError(fmt.Errorf("vecstore: train: %w", err))
	}

	s.logger.InfoContext(ctx, "index trained", "vectors", len(vecs), "state", s.idx.State().String())
	return s.persist(ctx)
}
