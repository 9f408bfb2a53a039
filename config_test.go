package vecstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstore/embedding"
	"github.com/hupe1980/vecstore/persistence"
)

const testConfigYAML = `
embedding_model_name: all-MiniLM-L6-v2
index_dir: ./data
dimension: 16
batch_size: 8
index_type: hnsw
normalize: true
compression: zstd
codec: json
query_cache_size: 64
hnsw:
  m: 12
  ef_construction: 100
  ef_search: 40
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vecstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	t.Setenv("VECSTORE_HNSW__EF_SEARCH", "80")
	t.Setenv("VECSTORE_OVERFETCH_FACTOR", "4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "all-MiniLM-L6-v2", cfg.EmbeddingModelName)
	assert.Equal(t, "./data", cfg.IndexDir)
	assert.Equal(t, 16, cfg.Dimension)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, "hnsw", cfg.IndexType)
	assert.True(t, cfg.Normalize)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, 64, cfg.QueryCacheSize)
	assert.Equal(t, 12, cfg.HNSW.M)
	assert.Equal(t, 100, cfg.HNSW.EFConstruction)
	assert.Equal(t, 80, cfg.HNSW.EFSearch)
	assert.Equal(t, 4, cfg.OverFetchFactor)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Setenv("VECSTORE_INDEX_TYPE", "lsh")
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IndexDir = t.TempDir()
	cfg.IndexType = "hnsw"
	cfg.Dimension = 16
	cfg.EmbeddingModelName = "configured/model"
	cfg.HNSW.M = 6

	opts, err := cfg.Options()
	require.NoError(t, err)

	s, err := Open(context.Background(), embedding.NewHashing("provider-model", 16), opts...)
	require.NoError(t, err)
	defer s.Close()

	st := s.Stats()
	assert.Equal(t, "hnsw", st.IndexType)
	assert.Equal(t, persistence.ModelKey("configured/model"), st.Model)

	cfg.Dimension = 32
	opts, err = cfg.Options()
	require.NoError(t, err)
	_, err = Open(context.Background(), embedding.NewHashing("x", 16), opts...)
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)

	cfg.Compression = "brotli"
	_, err = cfg.Options()
	assert.Error(t, err)

	cfg.Compression = "none"
	cfg.Codec = "xml"
	_, err = cfg.Options()
	assert.Error(t, err)
}
