package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/catalog"
	"github.com/hupe1980/vecstore/codec"
	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/index/flat"
)

const testKey = "model"

func newSnapshot(t *testing.T, n int) Snapshot {
	t.Helper()

	idx, err := flat.New(3)
	require.NoError(t, err)

	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = []float32{float32(i), float32(i) + 0.5, 1}
	}
	_, err = idx.Add(context.Background(), vecs)
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := make([]catalog.Record, n)
	namespaces := map[string][]uint32{}
	for i := range records {
		ns := ""
		if i == 0 || i == 2 {
			ns = "a"
			namespaces[ns] = append(namespaces[ns], uint32(i))
		}
		records[i] = catalog.NewRecord("text", ns, map[string]any{"i": i}, 0, now)
		records[i].InternalIndex = uint32(i)
	}

	return Snapshot{
		Index:      idx,
		Records:    records,
		Namespaces: namespaces,
	}
}

func TestManagerRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			store := blobstore.NewMemoryStore()
			m := NewManager(store, func(o *Options) { o.Compression = c })

			snap := newSnapshot(t, 4)
			stats, err := m.Save(ctx, testKey, snap)
			require.NoError(t, err)
			assert.Positive(t, stats.Bytes())

			loaded, err := m.Load(ctx, testKey, 3)
			require.NoError(t, err)
			assert.Equal(t, 0, loaded.Padded)
			assert.Equal(t, index.KindFlat, loaded.Index.Kind())
			assert.Equal(t, 4, loaded.Index.Len())
			assert.Equal(t, 4, loaded.Catalog.Len())
			assert.Equal(t, []uint32{0, 2}, loaded.Namespaces.Members("a"))

			r0, _ := loaded.Catalog.Get(0)
			assert.Equal(t, "a", r0.Namespace)

			r, ok := loaded.Catalog.ByID(snap.Records[1].ID)
			require.True(t, ok)
			assert.Equal(t, uint32(1), r.InternalIndex)

			v, ok := loaded.Index.Vector(2)
			require.True(t, ok)
			assert.Equal(t, []float32{2, 2.5, 1}, v)

			keys, err := m.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{testKey}, keys)
		})
	}
}

func TestManagerAbsent(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	_, err := m.Load(ctx, testKey, 3)
	assert.ErrorIs(t, err, ErrAbsent)

	_, err = m.Save(ctx, testKey, newSnapshot(t, 2))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, MetadataName(testKey)))

	_, err = m.Load(ctx, testKey, 3)
	assert.ErrorIs(t, err, ErrAbsent)
}

func TestManagerCorruption(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		dim      int
		mutate   func(t *testing.T, store *blobstore.MemoryStore, snap *Snapshot)
		artifact string
	}{
		{
			name:     "dimension mismatch",
			dim:      4,
			artifact: IndexName(testKey),
		},
		{
			name: "index checksum",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				require.True(t, store.Corrupt(IndexName(testKey), func(b []byte) []byte {
					b[len(b)-1] ^= 0xff
					return b
				}))
			},
			artifact: IndexName(testKey),
		},
		{
			name: "metadata not json",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				require.NoError(t, store.Put(ctx, MetadataName(testKey), []byte("{not json")))
			},
			artifact: MetadataName(testKey),
		},
		{
			name: "metadata longer than index",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, snap *Snapshot) {
				extra := append(snap.Records, catalog.Placeholder(uint32(len(snap.Records)), time.Now()))
				require.NoError(t, store.Put(ctx, MetadataName(testKey), codec.MustMarshal(codec.Default, extra)))
			},
			artifact: MetadataName(testKey),
		},
		{
			name: "metadata not dense",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, snap *Snapshot) {
				recs := append([]catalog.Record(nil), snap.Records...)
				recs[1].InternalIndex = 7
				require.NoError(t, store.Put(ctx, MetadataName(testKey), codec.MustMarshal(codec.Default, recs)))
			},
			artifact: MetadataName(testKey),
		},
		{
			name: "namespace out of range",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				ns := map[string][]uint32{"a": {9}}
				require.NoError(t, store.Put(ctx, NamespacesName(testKey), codec.MustMarshal(codec.Default, ns)))
			},
			artifact: NamespacesName(testKey),
		},
		{
			name: "namespace disagrees with record",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				ns := map[string][]uint32{"a": {0}, "b": {2}}
				require.NoError(t, store.Put(ctx, NamespacesName(testKey), codec.MustMarshal(codec.Default, ns)))
			},
			artifact: NamespacesName(testKey),
		},
		{
			name: "live record missing from namespace",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				ns := map[string][]uint32{"a": {0}}
				require.NoError(t, store.Put(ctx, NamespacesName(testKey), codec.MustMarshal(codec.Default, ns)))
			},
			artifact: NamespacesName(testKey),
		},
		{
			name: "global record listed in namespace",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				ns := map[string][]uint32{"a": {0, 1, 2}}
				require.NoError(t, store.Put(ctx, NamespacesName(testKey), codec.MustMarshal(codec.Default, ns)))
			},
			artifact: NamespacesName(testKey),
		},
		{
			name: "namespace overlap",
			dim:  3,
			mutate: func(t *testing.T, store *blobstore.MemoryStore, _ *Snapshot) {
				ns := map[string][]uint32{"a": {0}, "b": {0}}
				require.NoError(t, store.Put(ctx, NamespacesName(testKey), codec.MustMarshal(codec.Default, ns)))
			},
			artifact: NamespacesName(testKey),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			m := NewManager(store)
			snap := newSnapshot(t, 3)
			_, err := m.Save(ctx, testKey, snap)
			require.NoError(t, err)

			if tt.mutate != nil {
				tt.mutate(t, store, &snap)
			}

			_, err = m.Load(ctx, testKey, tt.dim)
			require.Error(t, err)
			assert.True(t, IsCorruption(err))
			assert.False(t, errors.Is(err, ErrAbsent))

			var ce *CorruptionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.artifact, ce.Artifact)
			assert.Equal(t, testKey, ce.Key)
		})
	}
}

func TestManagerPadsShortMetadata(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(store, func(o *Options) { o.Now = func() time.Time { return now } })

	snap := newSnapshot(t, 4)
	snap.Records = snap.Records[:2]
	_, err := m.Save(ctx, testKey, snap)
	require.NoError(t, err)

	loaded, err := m.Load(ctx, testKey, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Padded)
	assert.Equal(t, []uint32{0}, loaded.Namespaces.Members("a"), "padded index 2 leaves its namespace")
	assert.Equal(t, 4, loaded.Catalog.Len())
	assert.Equal(t, 2, loaded.Catalog.Active())

	for _, i := range []uint32{2, 3} {
		r, ok := loaded.Catalog.Get(i)
		require.True(t, ok)
		assert.True(t, r.Deleted)
		assert.Equal(t, i, r.InternalIndex)
		assert.Equal(t, now, r.CreatedAt)
	}
}

func TestManagerRemove(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	_, err := m.Save(ctx, testKey, newSnapshot(t, 1))
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, testKey))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = m.Load(ctx, testKey, 3)
	assert.ErrorIs(t, err, ErrAbsent)
}

func TestManagerAcceptsDeletedNamespaceMembers(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	m := NewManager(store)

	snap := newSnapshot(t, 3)
	// Deleted and unassigned, as Delete leaves it.
	snap.Records[2].Deleted = true
	snap.Namespaces = map[string][]uint32{"a": {0}}
	_, err := m.Save(ctx, testKey, snap)
	require.NoError(t, err)

	loaded, err := m.Load(ctx, testKey, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, loaded.Namespaces.Members("a"))
}
