package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstore/blobstore"
)

func TestKeys(t *testing.T) {
	s := NewStore(nil, "bucket", "/vecstore/")
	assert.Equal(t, "vecstore/index_a.idx", s.key("index_a.idx"))
	assert.Equal(t, "index_a.idx", s.name("vecstore/index_a.idx"))

	bare := NewStore(nil, "bucket", "")
	assert.Equal(t, "index_a.idx", bare.key("index_a.idx"))
	assert.Equal(t, "index_a.idx", bare.name("index_a.idx"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

// TestStoreIntegration requires a running MinIO instance addressed by
// VECSTORE_MINIO_ENDPOINT (credentials default to minioadmin).
func TestStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("VECSTORE_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("VECSTORE_MINIO_ENDPOINT not set")
	}

	ctx := context.Background()
	store, err := Dial(ctx, Config{
		Endpoint:  endpoint,
		AccessKey: envOr("VECSTORE_MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("VECSTORE_MINIO_SECRET_KEY", "minioadmin"),
		Bucket:    "vecstore-test",
		Prefix:    "it/",
	})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "index_m.idx", []byte("hello minio")))

	data, err := blobstore.ReadAll(ctx, store, "index_m.idx")
	require.NoError(t, err)
	assert.Equal(t, "hello minio", string(data))

	names, err := store.List(ctx, "index_")
	require.NoError(t, err)
	assert.Contains(t, names, "index_m.idx")

	require.NoError(t, store.Delete(ctx, "index_m.idx"))
	_, err = store.Open(ctx, "index_m.idx")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
