package persistence

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("vector-store "), 512)
	random := make([]byte, 256)
	for i := range random {
		random[i] = byte(i*131 + 7)
	}

	tests := []struct {
		name     string
		payload  []byte
		c        Compression
		wantUsed Compression
	}{
		{"none", compressible, CompressionNone, CompressionNone},
		{"lz4", compressible, CompressionLZ4, CompressionLZ4},
		{"zstd", compressible, CompressionZSTD, CompressionZSTD},
		{"empty", nil, CompressionZSTD, CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framed, err := encodeFrame(tt.payload, tt.c)
			require.NoError(t, err)
			assert.Equal(t, byte(tt.wantUsed), framed[5])

			got, err := decodeFrame(framed)
			require.NoError(t, err)
			assert.Equal(t, len(tt.payload), len(got))
			if len(tt.payload) > 0 {
				assert.Equal(t, tt.payload, got)
			}
		})
	}

	t.Run("short random payload", func(t *testing.T) {
		framed, err := encodeFrame(random, CompressionLZ4)
		require.NoError(t, err)
		got, err := decodeFrame(framed)
		require.NoError(t, err)
		assert.Equal(t, random, got)
	})
}

func TestFrameCorruption(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 64)
	framed, err := encodeFrame(payload, CompressionNone)
	require.NoError(t, err)

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(framed)
		bad[frameHeaderSize+3] ^= 0xff
		_, err := decodeFrame(bad)
		require.Error(t, err)
		assert.True(t, IsChecksumMismatch(err))
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(framed)
		bad[0] = 'X'
		_, err := decodeFrame(bad)
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := decodeFrame(framed[:len(framed)-1])
		assert.Error(t, err)
		_, err = decodeFrame(framed[:10])
		assert.Error(t, err)
	})

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run("inflated raw length "+c.String(), func(t *testing.T) {
			good, err := encodeFrame(payload, c)
			require.NoError(t, err)
			require.Equal(t, byte(c), good[5], "payload must compress")

			bad := bytes.Clone(good)
			binary.LittleEndian.PutUint64(bad[12:20], 1<<35)
			assert.NotPanics(t, func() {
				_, err := decodeFrame(bad)
				assert.Error(t, err)
			})
		})
	}

	t.Run("oversized raw length", func(t *testing.T) {
		bad := bytes.Clone(framed)
		binary.LittleEndian.PutUint64(bad[12:20], maxRawLength+1)
		_, err := decodeFrame(bad)
		assert.Error(t, err)
	})
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "LZ4": CompressionLZ4, " zstd ": CompressionZSTD} {
		got, err := ParseCompression(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseCompression("brotli")
	assert.Error(t, err)
	assert.Equal(t, "zstd", CompressionZSTD.String())
}

func TestModelKey(t *testing.T) {
	tests := map[string]string{
		"":                 "default",
		"all-MiniLM-L6-v2": "all-MiniLM-L6-v2",
		"bge_small.v1.5":   "bge_small.v1.5",
	}
	for in, want := range tests {
		assert.Equal(t, want, ModelKey(in), in)
	}

	sanitized := map[string]string{
		"sentence-transformers/all-MiniLM-L6-v2": "sentence-transformers_all-MiniLM-L6-v2-",
		`C:\models\bge`:                          "C__models_bge-",
		"text embedding 3":                       "text_embedding_3-",
		"..":                                     "__-",
	}
	for in, prefix := range sanitized {
		key := ModelKey(in)
		assert.True(t, strings.HasPrefix(key, prefix), "%s -> %s", in, key)
		assert.Len(t, key, len(prefix)+8, key)
		assert.Equal(t, key, ModelKey(in), "stable")
	}

	assert.NotEqual(t, ModelKey("a/b"), ModelKey("a_b"))
	assert.NotEqual(t, ModelKey("a/b"), ModelKey("a:b"))

	assert.Equal(t, "index_m.idx", IndexName("m"))
	assert.Equal(t, "metadata_m.json", MetadataName("m"))
	assert.Equal(t, "namespaces_m.json", NamespacesName("m"))
}
