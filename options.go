package vecstore

import (
	"log/slog"
	"time"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/catalog"
	"github.com/hupe1980/vecstore/codec"
	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/persistence"
)

const (
	// DefaultIndexDir is the local artifact directory used without WithIndexDir or WithBlobStore.
	DefaultIndexDir = "vector_store"

	// DefaultBatchSize is the number of texts embedded and persisted together.
	DefaultBatchSize = 32

	// DefaultOverFetchFactor multiplies k when a namespace or filter is applied.
	DefaultOverFetchFactor = 10
)

type options struct {
	blobStore        blobstore.BlobStore
	indexDir         string
	modelName        string
	locking          bool
	dimension        int
	indexKind        index.Kind
	indexOptions     index.Options
	normalize        bool
	compression      persistence.Compression
	codec            codec.Codec
	batchSize        int
	previewLength    int
	overFetchFactor  int
	queryCacheSize   int
	metricsCollector MetricsCollector
	logger           *Logger
	now              func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithBlobStore stores artifacts in bs instead of the local index directory.
// A *blobstore.LocalStore is still guarded by the lock file.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = bs
	}
}

// WithIndexDir sets the local artifact directory.
func WithIndexDir(dir string) Option {
	return func(o *options) {
		o.indexDir = dir
	}
}

// WithModelName keys the persisted artifacts by name instead of the provider's model.
func WithModelName(name string) Option {
	return func(o *options) {
		o.modelName = name
	}
}

// WithLocking enables or disables the cross-process lock file (default on).
func WithLocking(enabled bool) Option {
	return func(o *options) {
		o.locking = enabled
	}
}

// WithDimension pins the expected dimension. Open fails when the provider disagrees.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithIndexType selects the index kind for fresh stores (default flat).
func WithIndexType(kind index.Kind) Option {
	return func(o *options) {
		o.indexKind = kind
	}
}

// WithHNSW configures the hnsw graph.
func WithHNSW(m, efConstruction, efSearch int) Option {
	return func(o *options) {
		o.indexKind = index.KindHNSW
		if m > 0 {
			o.indexOptions.M = m
		}
		if efConstruction > 0 {
			o.indexOptions.EFConstruction = efConstruction
		}
		if efSearch > 0 {
			o.indexOptions.EFSearch = efSearch
		}
	}
}

// WithIVF configures the inverted file index.
func WithIVF(nlist, nprobe int) Option {
	return func(o *options) {
		o.indexKind = index.KindIVF
		if nlist > 0 {
			o.indexOptions.NList = nlist
		}
		if nprobe > 0 {
			o.indexOptions.NProbe = nprobe
		}
	}
}

// WithSeed makes hnsw level assignment and ivf training reproducible.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.indexOptions.Seed = seed
	}
}

// WithNormalize L2-normalizes stored vectors and queries.
// Squared L2 distance then equals 2 - 2*cos.
func WithNormalize(normalize bool) Option {
	return func(o *options) {
		o.normalize = normalize
	}
}

// WithCompression selects the index artifact compression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec configures the codec used for the JSON artifacts.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithDefaultBatchSize sets the ingestion batch size (default 32).
func WithDefaultBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithPreviewLength sets how many runes of each text are kept in its record.
func WithPreviewLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.previewLength = n
		}
	}
}

// WithQueryCache caches up to size query embeddings in memory.
func WithQueryCache(size int) Option {
	return func(o *options) {
		o.queryCacheSize = size
	}
}

// WithOverFetchFactor sets how many candidates per requested result are
// fetched when a namespace or filter is applied.
func WithOverFetchFactor(f int) Option {
	return func(o *options) {
		if f > 0 {
			o.overFetchFactor = f
		}
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		indexDir:         DefaultIndexDir,
		locking:          true,
		indexKind:        index.KindFlat,
		indexOptions:     index.DefaultOptions,
		compression:      persistence.CompressionNone,
		codec:            codec.Default,
		batchSize:        DefaultBatchSize,
		previewLength:    catalog.DefaultPreviewLength,
		overFetchFactor:  DefaultOverFetchFactor,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Filter decides whether a candidate record may appear in search results.
type Filter func(Record) bool

type callOptions struct {
	batchSize int
	namespace string
	filter    Filter
}

// CallOption configures a single AddTexts or search call.
type CallOption func(*callOptions)

// WithBatchSize overrides the ingestion batch size for one AddTexts call.
func WithBatchSize(n int) CallOption {
	return func(o *callOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithNamespace assigns added texts to ns, or restricts a search to ns.
func WithNamespace(ns string) CallOption {
	return func(o *callOptions) {
		o.namespace = ns
	}
}

// WithFilter restricts search results to records accepted by f.
func WithFilter(f Filter) CallOption {
	return func(o *callOptions) {
		o.filter = f
	}
}

func (s *Store) callOptions(optFns []CallOption) callOptions {
	o := callOptions{batchSize: s.opts.batchSize}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
