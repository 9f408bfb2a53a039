package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecstore/distance"
)

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(7).UniformVectors(3, 4)
	b := NewRNG(7).UniformVectors(3, 4)
	assert.Equal(t, a, b)
}

func TestUnitVectors(t *testing.T) {
	for _, v := range NewRNG(1).UnitVectors(10, 16) {
		assert.InDelta(t, 1.0, distance.Norm(v), 1e-5)
	}
}

func TestExactTopK(t *testing.T) {
	data := [][]float32{{0}, {5}, {1}, {1}}
	got := ExactTopK([]float32{0}, data, 3)
	require.Len(t, got, 3)
	assert.Equal(t, uint32(0), got[0].ID)
	assert.Equal(t, uint32(2), got[1].ID)
	assert.Equal(t, uint32(3), got[2].ID)

	assert.Len(t, ExactTopK([]float32{0}, data, 10), 4)
}

func TestComputeRecall(t *testing.T) {
	truth := []SearchResult{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	assert.Equal(t, 1.0, ComputeRecall(truth, truth))
	assert.Equal(t, 0.5, ComputeRecall(truth, []SearchResult{{ID: 1}, {ID: 9}, {ID: 3}, {ID: 8}}))
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.0, ComputeRecall(truth, nil))
}
