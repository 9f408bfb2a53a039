package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/hupe1980/vecstore/distance"
)

// ErrNotEnoughVectors is returned when fewer vectors than clusters are supplied.
var ErrNotEnoughVectors = errors.New("kmeans: not enough vectors to train")

// TrainKMeans trains k centroids from the given flattened vectors (n * dim)
// using Lloyd's algorithm. It returns the flattened centroids (k * dim).
//
// rng seeds centroid initialization; a nil rng uses a fixed seed so training
// is reproducible.
func TrainKMeans(ctx context.Context, vectors []float32, dim int, k int, metric distance.Metric, maxIter int, rng *rand.Rand) ([]float32, error) {
	if dim <= 0 || k <= 0 {
		return nil, errors.New("kmeans: dim and k must be positive")
	}
	n := len(vectors) / dim
	if n < k {
		return nil, ErrNotEnoughVectors
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	centroids := make([]float32, k*dim)

	// Initialize centroids from distinct random data points.
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false

		// Assignment step
		for i := 0; i < n; i++ {
			best := nearest(vectors[i*dim:(i+1)*dim], centroids, dim, distFunc)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		// Update step
		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			c := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += vec[d]
			}
			counts[c]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float32(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = sums[j*dim+d] * scale
				}
				continue
			}
			// Re-seed an empty cluster with a random point.
			idx := rng.Intn(n)
			copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
		}
	}

	return centroids, nil
}

func nearest(vec []float32, centroids []float32, dim int, distFunc distance.Func) int {
	k := len(centroids) / dim
	best := -1
	minDist := float32(math.MaxFloat32)
	for j := 0; j < k; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

// AssignPartition finds the closest centroid for a vector.
func AssignPartition(vec []float32, centroids []float32, dim int, metric distance.Metric) (int, error) {
	distFunc, err := distance.Provider(metric)
	if err != nil {
		return -1, err
	}
	if len(centroids) < dim {
		return -1, errors.New("kmeans: no centroids")
	}
	return nearest(vec, centroids, dim, distFunc), nil
}

type centroidDist struct {
	id   int
	dist float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the
// query vector, nearest first.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]int, error) {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: distFunc(query, centroids[i*dim:(i+1)*dim])}
	}

	sort.Slice(dists, func(i, j int) bool {
		if dists[i].dist == dists[j].dist {
			return dists[i].id < dists[j].id
		}
		return dists[i].dist < dists[j].dist
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}

	return result, nil
}
