package flat

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/internal/testutil"
)

func TestFlat(t *testing.T) {
	ctx := context.Background()

	t.Run("Add", func(t *testing.T) {
		f, err := New(3)
		require.NoError(t, err)

		start, err := f.Add(ctx, [][]float32{{1, 2, 3}, {4, 5, 6}})
		require.NoError(t, err)
		assert.Equal(t, uint32(0), start)

		start, err = f.Add(ctx, [][]float32{{7, 8, 9}})
		require.NoError(t, err)
		assert.Equal(t, uint32(2), start)
		assert.Equal(t, 3, f.Len())

		_, err = f.Add(ctx, [][]float32{{1, 1, 1}, {1, 2}})
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
		assert.Equal(t, 3, f.Len(), "failed batch must not be partially applied")
	})

	t.Run("Search", func(t *testing.T) {
		f, err := New(3)
		require.NoError(t, err)
		_, err = f.Add(ctx, [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
		require.NoError(t, err)

		res, err := f.Search(ctx, []float32{9, 9, 9}, 2)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, uint32(2), res[0].ID)
		assert.Equal(t, uint32(1), res[1].ID)
		assert.LessOrEqual(t, res[0].Distance, res[1].Distance)

		all, err := f.Search(ctx, []float32{0, 0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		_, err = f.Search(ctx, []float32{0, 0}, 1)
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
	})

	t.Run("Empty", func(t *testing.T) {
		f, err := New(3)
		require.NoError(t, err)

		res, err := f.Search(ctx, []float32{1, 2, 3}, 5)
		require.NoError(t, err)
		assert.Empty(t, res)

		_, err = f.Add(ctx, [][]float32{{1, 2, 3}})
		require.NoError(t, err)
		res, err = f.Search(ctx, []float32{1, 2, 3}, 0)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := New(0)
		assert.IsType(t, &index.ErrInvalidDimension{}, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		f, err := New(2)
		require.NoError(t, err)
		_, err = f.Add(ctx, [][]float32{{1, 2}})
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = f.Search(cctx, []float32{1, 2}, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFlatMatchesExact(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(3)
	data := rng.UniformVectors(500, 16)

	f, err := New(16)
	require.NoError(t, err)
	_, err = f.Add(ctx, data)
	require.NoError(t, err)

	for _, q := range rng.UniformVectors(10, 16) {
		res, err := f.Search(ctx, q, 10)
		require.NoError(t, err)
		truth := testutil.ExactTopK(q, data, 10)
		require.Len(t, res, len(truth))
		for i := range truth {
			assert.Equal(t, truth[i].ID, res[i].ID)
		}
	}
}

func TestFlatBinaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	data := testutil.NewRNG(1).UniformVectors(50, 8)

	f, err := New(8)
	require.NoError(t, err)
	_, err = f.Add(ctx, data)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	loaded, err := index.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, index.KindFlat, loaded.Kind())
	assert.Equal(t, 50, loaded.Len())
	assert.Equal(t, 8, loaded.Dimension())

	v, ok := loaded.Vector(17)
	require.True(t, ok)
	assert.Equal(t, data[17], v)

	a, err := f.Search(ctx, data[3], 5)
	require.NoError(t, err)
	b, err := loaded.Search(ctx, data[3], 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFlatTruncated(t *testing.T) {
	f, err := New(4)
	require.NoError(t, err)
	_, err = f.Add(context.Background(), [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	_, err = index.Read(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
	assert.ErrorIs(t, err, index.ErrInvalidFormat)
}

func TestFlatRejectsInflatedHeader(t *testing.T) {
	tests := map[string]index.Header{
		"max dimension and count": {Kind: index.KindFlat, State: index.StateReady, Dimension: 0xFFFFFFFF, Count: 0xFFFFFFFF},
		"max count":               {Kind: index.KindFlat, State: index.StateReady, Dimension: 4, Count: 0xFFFFFFFF},
		"max dimension":           {Kind: index.KindFlat, State: index.StateReady, Dimension: 0xFFFFFFFF, Count: 1},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, index.WriteHeader(&buf, h))
			buf.Write(make([]byte, 16))

			assert.NotPanics(t, func() {
				_, err := index.Read(bytes.NewReader(buf.Bytes()))
				assert.ErrorIs(t, err, index.ErrInvalidFormat)
			})

			// A reader without a known length fails on EOF instead.
			assert.NotPanics(t, func() {
				_, err := index.Read(struct{ io.Reader }{bytes.NewReader(buf.Bytes())})
				assert.ErrorIs(t, err, index.ErrInvalidFormat)
			})
		})
	}
}
