// Package flat provides an exact brute-force index.
package flat

import (
	"context"
	"io"

	"github.com/hupe1980/vecstore/distance"
	"github.com/hupe1980/vecstore/index"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// cancelCheckInterval is the number of distance evaluations between context checks.
const cancelCheckInterval = 1024

func init() {
	index.RegisterConstructor(index.KindFlat, func(opts index.Options) (index.Index, error) {
		return New(opts.Dimension)
	})
	index.RegisterBinaryLoader(index.KindFlat, func(h index.Header, r io.Reader) (index.Index, error) {
		return read(h, r)
	})
}

// Flat represents a flat index for vector storage and search.
type Flat struct {
	vectors *index.Vectors
}

// New creates an empty flat index for vectors of dimension dim.
func New(dim int) (*Flat, error) {
	if err := index.ValidateDimension(dim); err != nil {
		return nil, err
	}
	return &Flat{vectors: index.NewVectors(dim)}, nil
}

func (*Flat) Kind() index.Kind { return index.KindFlat }

func (*Flat) State() index.State { return index.StateReady }

func (f *Flat) Dimension() int { return f.vectors.Dimension() }

func (f *Flat) Len() int { return f.vectors.Len() }

// Add appends vectors. Either every vector is added or none is.
func (f *Flat) Add(ctx context.Context, vectors [][]float32) (uint32, error) {
	start := uint32(f.vectors.Len())
	for _, v := range vectors {
		if err := index.CheckVector(v, f.Dimension()); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, v := range vectors {
		f.vectors.Append(v)
	}
	return start, nil
}

// Search performs an exact scan over all vectors.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	if k <= 0 || f.Len() == 0 {
		return []index.Result{}, nil
	}
	if err := index.CheckVector(query, f.Dimension()); err != nil {
		return nil, err
	}

	n := f.Len()
	top := index.NewTopK(min(k, n))
	for i := 0; i < n; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		top.Offer(uint32(i), distance.SquaredL2(query, f.vectors.At(uint32(i))))
	}
	return top.Results(), nil
}

// Vector returns a copy of the stored vector.
func (f *Flat) Vector(id uint32) ([]float32, bool) {
	return f.vectors.Get(id)
}
