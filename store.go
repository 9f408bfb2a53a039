package vecstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/catalog"
	"github.com/hupe1980/vecstore/distance"
	"github.com/hupe1980/vecstore/embedding"
	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/persistence"

	// Register the index kinds.
	_ "github.com/hupe1980/vecstore/index/flat"
	_ "github.com/hupe1980/vecstore/index/hnsw"
	_ "github.com/hupe1980/vecstore/index/ivf"
)

// Record is the metadata stored for one vector.
type Record = catalog.Record

// Store is a vector store for one embedding model.
// It is safe for concurrent use: mutations are serialized, reads run in parallel.
type Store struct {
	mu sync.RWMutex

	provider embedding.Provider
	opts     options
	key      string
	dim      int
	logger   *Logger

	manager *persistence.Manager
	lock    *persistence.FileLock

	idx        index.Index
	catalog    *catalog.Catalog
	namespaces *catalog.Namespaces

	closed bool
}

// Open returns the store for provider's model. Persisted artifacts are loaded
// when present; missing or corrupt artifacts yield a fresh empty store.
func Open(ctx context.Context, provider embedding.Provider, optFns ...Option) (*Store, error) {
	o := applyOptions(optFns)

	dim := provider.Dimension()
	if err := index.ValidateDimension(dim); err != nil {
		return nil, translateError(err)
	}
	if o.dimension != 0 && o.dimension != dim {
		return nil, &ErrDimensionMismatch{Expected: o.dimension, Actual: dim}
	}

	if o.queryCacheSize > 0 {
		provider = embedding.NewCached(provider, o.queryCacheSize)
	}

	bs := o.blobStore
	if bs == nil {
		local, err := blobstore.NewLocalStore(o.indexDir)
		if err != nil {
			return nil, fmt.Errorf("vecstore: open index dir: %w", err)
		}
		bs = local
	}

	model := o.modelName
	if model == "" {
		model = provider.Model()
	}
	key := persistence.ModelKey(model)
	s := &Store{
		provider: provider,
		opts:     o,
		key:      key,
		dim:      dim,
		logger:   o.logger.WithModel(key),
		manager: persistence.NewManager(bs, func(po *persistence.Options) {
			po.Codec = o.codec
			po.Compression = o.compression
			po.Now = o.now
		}),
	}

	if local, ok := bs.(*blobstore.LocalStore); ok && o.locking {
		lock, err := persistence.Lock(local.Root(), key)
		if err != nil {
			return nil, err
		}
		s.lock = lock
	}

	if err := s.load(ctx); err != nil {
		_ = s.lock.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	loaded, err := s.manager.Load(ctx, s.key, s.dim)
	switch {
	case err == nil:
		if loaded.Index.Kind() != s.opts.indexKind {
			s.logger.WarnContext(ctx, "persisted index kind differs from configured kind, keeping persisted",
				"persisted", loaded.Index.Kind().String(),
				"configured", s.opts.indexKind.String(),
			)
		}
		if loaded.Padded > 0 {
			s.logger.WarnContext(ctx, "metadata shorter than index, padded with deleted placeholders",
				"padded", loaded.Padded,
			)
		}
		s.idx = loaded.Index
		s.catalog = loaded.Catalog
		s.namespaces = loaded.Namespaces
		s.logger.LogOpen(ctx, "loaded", s.idx.Len(), s.idx.Kind().String())
		return nil
	case errors.Is(err, persistence.ErrAbsent):
		if err := s.reset(); err != nil {
			return err
		}
		s.logger.LogOpen(ctx, "fresh", 0, s.idx.Kind().String())
		return nil
	case persistence.IsCorruption(err):
		s.logger.LogLoadFallback(ctx, err)
		if err := s.reset(); err != nil {
			return err
		}
		s.logger.LogOpen(ctx, "fresh", 0, s.idx.Kind().String())
		return nil
	default:
		return fmt.Errorf("vecstore: load: %w", err)
	}
}

// reset installs an empty index, catalog and namespace index.
func (s *Store) reset() error {
	idx, err := s.newIndex()
	if err != nil {
		return err
	}
	s.idx = idx
	s.catalog = catalog.New()
	s.namespaces = catalog.NewNamespaces()
	return nil
}

func (s *Store) newIndex() (index.Index, error) {
	idx, err := index.New(s.opts.indexKind, s.dim, func(o *index.Options) {
		*o = s.opts.indexOptions
	})
	if err != nil {
		return nil, translateError(fmt.Errorf("vecstore: create %s index: %w", s.opts.indexKind, err))
	}
	return idx, nil
}

// Close releases the store lock. Further calls return ErrClosed.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Unlock()
}

// Model returns the persistence key of the store's embedding model.
func (s *Store) Model() string { return s.key }

// Dimension returns the vector dimension.
func (s *Store) Dimension() int { return s.dim }

// AddTexts embeds and stores texts, returning their ids in input order.
//
// metadatas, when non-nil, must have one entry per text. Texts are processed
// in batches; each batch is persisted before the next starts. On error the
// ids of the batches already committed are returned with the error.
//
// A batch whose persist fails stays committed in memory: it is searchable,
// its ids are included in the returned slice and the next successful save
// writes it out. Callers that want to discard it pass those ids to Delete.
func (s *Store) AddTexts(ctx context.Context, texts []string, metadatas []map[string]any, optFns ...CallOption) ([]string, error) {
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("%w: %d metadatas for %d texts", ErrMetadataLength, len(metadatas), len(texts))
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	co := s.callOptions(optFns)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	ids := make([]string, 0, len(texts))
	batches := 0

	var err error
	defer func() {
		s.opts.metricsCollector.RecordAdd(len(ids), time.Since(start), err)
		s.logger.LogAdd(ctx, len(ids), batches, time.Since(start), err)
	}()

	for lo := 0; lo < len(texts); lo += co.batchSize {
		hi := min(lo+co.batchSize, len(texts))

		var batchIDs []string
		batchIDs, err = s.addBatch(ctx, texts[lo:hi], metadatas, lo, co.namespace)
		ids = append(ids, batchIDs...)
		if err != nil {
			return ids, err
		}
		batches++
	}

	return ids, nil
}

func (s *Store) addBatch(ctx context.Context, texts []string, metadatas []map[string]any, offset int, ns string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vecs, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("vecstore: embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("vecstore: provider returned %d vectors for %d texts", len(vecs), len(texts))
	}

	vecs, err = s.prepare(vecs)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	records := make([]catalog.Record, len(texts))
	for i, text := range texts {
		md := map[string]any{}
		if metadatas != nil && metadatas[offset+i] != nil {
			md = metadatas[offset+i]
		}
		records[i] = catalog.NewRecord(text, ns, md, s.opts.previewLength, now)
	}

	first, err := s.idx.Add(ctx, vecs)
	if err != nil {
		return nil, translateError(fmt.Errorf("vecstore: index add: %w", err))
	}

	at, err := s.catalog.Append(records...)
	if err != nil {
		return nil, fmt.Errorf("vecstore: catalog append: %w", err)
	}
	if at != first {
		return nil, fmt.Errorf("vecstore: catalog position %d does not match index position %d", at, first)
	}

	if ns != "" {
		for i := range records {
			if err := s.namespaces.Assign(ns, first+uint32(i)); err != nil {
				return nil, err
			}
		}
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	// The batch is committed in memory from here on.
	if err := s.persist(ctx); err != nil {
		return ids, err
	}
	return ids, nil
}

// prepare validates provider output and applies normalization.
func (s *Store) prepare(vecs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		q, err := s.prepareVector(v)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func (s *Store) prepareVector(v []float32) ([]float32, error) {
	if len(v) != s.dim {
		return nil, &ErrDimensionMismatch{Expected: s.dim, Actual: len(v)}
	}
	if !distance.IsFinite(v) {
		return nil, ErrNonFiniteVector
	}
	if !s.opts.normalize {
		return v, nil
	}
	c := slices.Clone(v)
	distance.NormalizeL2InPlace(c)
	return c, nil
}

// Save persists the current state. Mutating operations persist on their own.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.persist(ctx)
}

// persist must be called with the write lock held.
func (s *Store) persist(ctx context.Context) error {
	snap := persistence.Snapshot{
		Index:      s.idx,
		Records:    s.catalog.Records(),
		Namespaces: s.namespaces.ToMap(),
	}

	stats, err := s.manager.Save(ctx, s.key, snap)
	s.opts.metricsCollector.RecordPersist(stats.Bytes(), stats.Duration, err)
	s.logger.LogPersist(ctx, stats.Bytes(), stats.Duration, err)
	if err != nil {
		return fmt.Errorf("vecstore: persist: %w", err)
	}
	return nil
}
