package vecstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/embedding"
	"github.com/hupe1980/vecstore/internal/fs"
)

func TestInterruptedSaveLoadsPadded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := embedding.NewHashing("hash", 8)

	ffs := fs.NewFaultyFS(nil)
	local, err := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
	require.NoError(t, err)

	s, err := Open(ctx, p, WithBlobStore(local))
	require.NoError(t, err)

	ids, err := s.AddTexts(ctx, texts(2), nil)
	require.NoError(t, err)

	// Index and namespaces reach disk, metadata does not.
	ffs.AddRule("metadata_", fs.Fault{FailAfterBytes: 0})
	_, err = s.AddTexts(ctx, []string{"lost metadata"}, nil)
	require.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, 1, ffs.Hits("metadata_"))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, p, WithIndexDir(dir))
	require.NoError(t, err)
	defer reopened.Close()

	stats := reopened.Stats()
	assert.Equal(t, 3, stats.TotalVectors)
	assert.Equal(t, 2, stats.ActiveVectors)
	assert.Equal(t, 1, stats.DeletedVectors)

	for _, id := range ids {
		_, ok := reopened.GetByID(id)
		assert.True(t, ok, id)
	}

	results, err := reopened.SimilaritySearch(ctx, "lost metadata", 3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestInterruptedSaveKeepsPreviousArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := embedding.NewHashing("hash", 8)

	ffs := fs.NewFaultyFS(nil)
	local, err := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
	require.NoError(t, err)

	s, err := Open(ctx, p, WithBlobStore(local))
	require.NoError(t, err)
	_, err = s.AddTexts(ctx, texts(4), nil)
	require.NoError(t, err)

	ffs.AddRule("index_", fs.Fault{FailAfterBytes: -1, FailOnRename: true})
	_, err = s.AddTexts(ctx, texts(1), nil)
	require.Error(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, p, WithIndexDir(dir))
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 4, reopened.Stats().TotalVectors)
	assert.Equal(t, 4, reopened.Stats().ActiveVectors)
}

func TestFailedPersistReturnsCommittedIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := embedding.NewHashing("hash", 8)

	ffs := fs.NewFaultyFS(nil)
	local, err := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
	require.NoError(t, err)

	s, err := Open(ctx, p, WithBlobStore(local))
	require.NoError(t, err)
	defer s.Close()

	ffs.AddRule("index_", fs.Fault{FailAfterBytes: -1, FailOnRename: true})
	ids, err := s.AddTexts(ctx, []string{"orphan candidate"}, nil)
	require.ErrorIs(t, err, fs.ErrInjected)
	require.Len(t, ids, 1)

	rec, ok := s.GetByID(ids[0])
	require.True(t, ok)
	assert.Equal(t, "orphan candidate", rec.TextPreview)

	results, err := s.SimilaritySearch(ctx, "orphan candidate", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[0], results[0].ID)

	// The returned ids are enough to discard the batch once storage recovers.
	ffs.ClearRules()
	n, err := s.Delete(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, p, WithIndexDir(dir))
	require.NoError(t, err)
	defer reopened.Close()

	stats := reopened.Stats()
	assert.Equal(t, 1, stats.TotalVectors)
	assert.Equal(t, 0, stats.ActiveVectors)
}

func TestFailedPersistAcrossBatches(t *testing.T) {
	ctx := context.Background()
	p := embedding.NewHashing("hash", 8)

	ffs := fs.NewFaultyFS(nil)
	local, err := blobstore.NewLocalStore(t.TempDir(), blobstore.WithFileSystem(ffs))
	require.NoError(t, err)

	s, err := Open(ctx, p, WithBlobStore(local), WithDefaultBatchSize(2))
	require.NoError(t, err)
	defer s.Close()

	ffs.AddRule("metadata_", fs.Fault{FailAfterBytes: 0})
	ids, err := s.AddTexts(ctx, texts(5), nil)
	require.Error(t, err)

	// The first batch commits, fails to persist and stops ingestion.
	require.Len(t, ids, 2)
	assert.Equal(t, 2, s.Stats().ActiveVectors)
}
