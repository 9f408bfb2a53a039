// Package ivf implements an inverted-file index over k-means centroids.
//
// Vectors are assigned to the list of their nearest centroid. A query scans
// the NProbe lists whose centroids are closest to it and keeps probing further
// lists until at least k candidates were seen or every list was scanned.
//
// The index must be trained before use:
//
//	idx, _ := ivf.New(384, func(o *ivf.Options) { o.NList = 64 })
//	if err := idx.Train(ctx, sample); err != nil { ... }
//	start, err := idx.Add(ctx, vectors)
package ivf

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/hupe1980/vecstore/distance"
	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/internal/kmeans"
)

var (
	_ index.Index       = (*IVF)(nil)
	_ index.Trainer     = (*IVF)(nil)
	_ index.EmptyCloner = (*IVF)(nil)
)

const cancelCheckInterval = 1024

func init() {
	index.RegisterConstructor(index.KindIVF, func(o index.Options) (index.Index, error) {
		return New(o.Dimension, func(opts *Options) {
			opts.NList = o.NList
			opts.NProbe = o.NProbe
			opts.TrainIterations = o.TrainIterations
			opts.Seed = o.Seed
		})
	})
	index.RegisterBinaryLoader(index.KindIVF, func(h index.Header, r io.Reader) (index.Index, error) {
		return read(h, r)
	})
}

// Options configures an IVF index.
type Options struct {
	// NList is the number of centroids.
	NList int

	// NProbe is the number of lists scanned per query.
	NProbe int

	// TrainIterations bounds k-means iterations.
	TrainIterations int

	// Seed seeds centroid initialization.
	Seed int64
}

// DefaultOptions contains the default IVF options.
var DefaultOptions = Options{
	NList:           100,
	NProbe:          8,
	TrainIterations: 25,
	Seed:            42,
}

// IVF is an inverted-file index.
//
// Search is safe for concurrent use. Add and Train require exclusive access.
type IVF struct {
	opts      Options
	state     index.State
	vectors   *index.Vectors
	centroids []float32  // NList * dim, nil until trained
	lists     [][]uint32 // one list of internal indices per centroid
}

// New creates an untrained IVF index.
func New(dim int, optFns ...func(o *Options)) (*IVF, error) {
	if err := index.ValidateDimension(dim); err != nil {
		return nil, err
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NList < 1 {
		return nil, fmt.Errorf("ivf: nlist must be positive, got %d", opts.NList)
	}
	if opts.NProbe < 1 {
		opts.NProbe = 1
	}
	if opts.NProbe > opts.NList {
		opts.NProbe = opts.NList
	}
	if opts.TrainIterations < 1 {
		opts.TrainIterations = DefaultOptions.TrainIterations
	}

	return &IVF{
		opts:    opts,
		state:   index.StateUntrained,
		vectors: index.NewVectors(dim),
	}, nil
}

func (*IVF) Kind() index.Kind { return index.KindIVF }

func (ivf *IVF) State() index.State { return ivf.state }

func (ivf *IVF) Dimension() int { return ivf.vectors.Dimension() }

func (ivf *IVF) Len() int { return ivf.vectors.Len() }

// Options returns the index parameters.
func (ivf *IVF) Options() Options { return ivf.opts }

// SetNProbe changes the number of lists scanned per query.
func (ivf *IVF) SetNProbe(n int) {
	ivf.opts.NProbe = max(1, min(n, ivf.opts.NList))
}

// Vector returns a copy of the stored vector.
func (ivf *IVF) Vector(id uint32) ([]float32, bool) { return ivf.vectors.Get(id) }

// Train learns NList centroids from vectors.
// An empty index may be retrained; a populated one may not.
func (ivf *IVF) Train(ctx context.Context, vectors [][]float32) error {
	if ivf.Len() > 0 {
		return index.ErrAlreadyPopulated
	}
	if len(vectors) < ivf.opts.NList {
		return fmt.Errorf("%w: need at least %d vectors, got %d", index.ErrInsufficientTrainingData, ivf.opts.NList, len(vectors))
	}

	dim := ivf.Dimension()
	flat := make([]float32, 0, len(vectors)*dim)
	for _, v := range vectors {
		if err := index.CheckVector(v, dim); err != nil {
			return err
		}
		flat = append(flat, v...)
	}

	prev := ivf.state
	ivf.state = index.StateTraining

	rng := rand.New(rand.NewSource(ivf.opts.Seed))
	centroids, err := kmeans.TrainKMeans(ctx, flat, dim, ivf.opts.NList, distance.MetricL2, ivf.opts.TrainIterations, rng)
	if err != nil {
		ivf.state = prev
		return fmt.Errorf("ivf: train: %w", err)
	}

	ivf.centroids = centroids
	ivf.lists = make([][]uint32, ivf.opts.NList)
	ivf.state = index.StateReady
	return nil
}

// CloneEmpty returns an empty index with the same options and centroids.
func (ivf *IVF) CloneEmpty() index.Index {
	c := &IVF{
		opts:    ivf.opts,
		state:   ivf.state,
		vectors: index.NewVectors(ivf.Dimension()),
	}
	if ivf.state == index.StateReady {
		c.centroids = append([]float32(nil), ivf.centroids...)
		c.lists = make([][]uint32, ivf.opts.NList)
	} else {
		c.state = index.StateUntrained
	}
	return c
}

// Add assigns vectors to their nearest list. Either every vector is added or none is.
func (ivf *IVF) Add(ctx context.Context, vectors [][]float32) (uint32, error) {
	if ivf.state != index.StateReady {
		return 0, index.ErrNotTrained
	}

	dim := ivf.Dimension()
	assign := make([]int, len(vectors))
	for i, v := range vectors {
		if err := index.CheckVector(v, dim); err != nil {
			return 0, err
		}
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		p, err := kmeans.AssignPartition(v, ivf.centroids, dim, distance.MetricL2)
		if err != nil {
			return 0, err
		}
		assign[i] = p
	}

	start := uint32(ivf.Len())
	for i, v := range vectors {
		id := ivf.vectors.Append(v)
		ivf.lists[assign[i]] = append(ivf.lists[assign[i]], id)
	}
	return start, nil
}

// Search scans the closest lists. When k covers the whole index every list is scanned.
func (ivf *IVF) Search(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	n := ivf.Len()
	if k <= 0 || n == 0 {
		return []index.Result{}, nil
	}
	if ivf.state != index.StateReady {
		return nil, index.ErrNotTrained
	}

	dim := ivf.Dimension()
	if err := index.CheckVector(query, dim); err != nil {
		return nil, err
	}

	k = min(k, n)
	nprobe := ivf.opts.NProbe
	if k == n {
		nprobe = ivf.opts.NList
	}

	order, err := kmeans.FindClosestCentroids(query, ivf.centroids, dim, ivf.opts.NList, distance.MetricL2)
	if err != nil {
		return nil, err
	}

	top := index.NewTopK(k)
	scanned := 0
	for probed, list := range order {
		if probed >= nprobe && scanned >= k {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, id := range ivf.lists[list] {
			top.Offer(id, distance.SquaredL2(query, ivf.vectors.At(id)))
		}
		scanned += len(ivf.lists[list])
	}

	return top.Results(), nil
}

// ListSizes returns the number of vectors per list.
func (ivf *IVF) ListSizes() []int {
	sizes := make([]int, len(ivf.lists))
	for i, l := range ivf.lists {
		sizes[i] = len(l)
	}
	return sizes
}
