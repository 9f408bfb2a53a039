package vecstore

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/hupe1980/vecstore/codec"
	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/persistence"
)

// EnvPrefix prefixes environment overrides, e.g. VECSTORE_INDEX_TYPE=hnsw
// or VECSTORE_HNSW__EF_SEARCH=128 for nested keys.
const EnvPrefix = "VECSTORE_"

// Config is the deployment configuration of a store.
type Config struct {
	EmbeddingModelName string     `koanf:"embedding_model_name"`
	IndexDir           string     `koanf:"index_dir"`
	Dimension          int        `koanf:"dimension"`
	BatchSize          int        `koanf:"batch_size"`
	IndexType          string     `koanf:"index_type"`
	Normalize          bool       `koanf:"normalize"`
	Compression        string     `koanf:"compression"`
	Codec              string     `koanf:"codec"`
	QueryCacheSize     int        `koanf:"query_cache_size"`
	PreviewLength      int        `koanf:"preview_length"`
	OverFetchFactor    int        `koanf:"overfetch_factor"`
	HNSW               HNSWConfig `koanf:"hnsw"`
	IVF                IVFConfig  `koanf:"ivf"`
}

// HNSWConfig holds hnsw graph parameters. Zero values keep the defaults.
type HNSWConfig struct {
	M              int `koanf:"m"`
	EFConstruction int `koanf:"ef_construction"`
	EFSearch       int `koanf:"ef_search"`
}

// IVFConfig holds ivf parameters. Zero values keep the defaults.
type IVFConfig struct {
	NList  int `koanf:"nlist"`
	NProbe int `koanf:"nprobe"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		IndexDir:        DefaultIndexDir,
		BatchSize:       DefaultBatchSize,
		IndexType:       index.KindFlat.String(),
		Compression:     persistence.CompressionNone.String(),
		Codec:           codec.Default.Name(),
		OverFetchFactor: DefaultOverFetchFactor,
	}
}

// LoadConfig reads YAML from path (skipped when path is empty or missing)
// and applies VECSTORE_* environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("vecstore: load config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("vecstore: read config file: %w", err)
		}
	}

	// VECSTORE_HNSW__EF_SEARCH -> hnsw.ef_search
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("vecstore: load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("vecstore: unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c Config) Validate() error {
	if _, err := index.ParseKind(c.IndexType); err != nil {
		return fmt.Errorf("vecstore: config index_type: %w", err)
	}
	if _, err := persistence.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("vecstore: config compression: %w", err)
	}
	if _, err := codec.ByName(c.Codec); err != nil {
		return fmt.Errorf("vecstore: config codec: %w", err)
	}
	if c.Dimension < 0 {
		return fmt.Errorf("vecstore: config dimension must not be negative")
	}
	if c.BatchSize < 0 || c.OverFetchFactor < 0 || c.PreviewLength < 0 || c.QueryCacheSize < 0 {
		return fmt.Errorf("vecstore: config sizes must not be negative")
	}
	return nil
}

// Options converts the configuration to Open options.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	kind, _ := index.ParseKind(c.IndexType)
	comp, _ := persistence.ParseCompression(c.Compression)
	cdc, _ := codec.ByName(c.Codec)

	opts := []Option{
		WithIndexType(kind),
		WithNormalize(c.Normalize),
		WithCompression(comp),
		WithCodec(cdc),
		WithQueryCache(c.QueryCacheSize),
		WithDefaultBatchSize(c.BatchSize),
		WithPreviewLength(c.PreviewLength),
		WithOverFetchFactor(c.OverFetchFactor),
	}
	if c.EmbeddingModelName != "" {
		opts = append(opts, WithModelName(c.EmbeddingModelName))
	}
	if c.IndexDir != "" {
		opts = append(opts, WithIndexDir(c.IndexDir))
	}
	if c.Dimension > 0 {
		opts = append(opts, WithDimension(c.Dimension))
	}

	switch kind {
	case index.KindHNSW:
		opts = append(opts, WithHNSW(c.HNSW.M, c.HNSW.EFConstruction, c.HNSW.EFSearch))
	case index.KindIVF:
		opts = append(opts, WithIVF(c.IVF.NList, c.IVF.NProbe))
	}
	return opts, nil
}
