// Package hnsw implements the Hierarchical Navigable Small World (HNSW) graph for approximate nearest neighbor search.
package hnsw

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/vecstore/distance"
	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/internal/queue"
)

// Compile-time check
var _ index.Index = (*HNSW)(nil)

const (
	// DefaultM is the default number of bi-directional links per node on upper layers.
	DefaultM = 16

	// DefaultEFConstruction is the default candidate list size used while inserting.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default candidate list size used while searching.
	DefaultEFSearch = 64

	// maxLevel caps the randomly drawn level of a node.
	maxLevel = 16
)

func init() {
	index.RegisterConstructor(index.KindHNSW, func(o index.Options) (index.Index, error) {
		return New(o.Dimension, func(opts *Options) {
			opts.M = o.M
			opts.EFConstruction = o.EFConstruction
			opts.EFSearch = o.EFSearch
			opts.Seed = o.Seed
		})
	})
	index.RegisterBinaryLoader(index.KindHNSW, func(h index.Header, r io.Reader) (index.Index, error) {
		return read(h, r)
	})
}

// Options represents the options for configuring HNSW.
type Options struct {
	// M is the graph degree on upper layers. Layer 0 allows 2*M links.
	M int

	// EFConstruction is the candidate list size used while inserting.
	EFConstruction int

	// EFSearch is the candidate list size used while searching. It is raised to k when smaller.
	EFSearch int

	// Seed seeds level assignment.
	Seed int64
}

// DefaultOptions contains the default HNSW options.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Seed:           42,
}

// HNSW represents the Hierarchical Navigable Small World graph.
//
// Search is safe for concurrent use. Add requires exclusive access.
type HNSW struct {
	opts    Options
	vectors *index.Vectors

	// links[id][layer] holds the neighbours of id on layer.
	links [][][]uint32

	entryPoint uint32
	maxLevel   int // -1 while empty

	maxConnectionsPerLayer int
	maxConnectionsLayer0   int
	layerMultiplier        float64
	rng                    *rand.Rand

	visitedPool sync.Pool
}

// New creates a new HNSW instance.
func New(dim int, optFns ...func(o *Options)) (*HNSW, error) {
	if err := index.ValidateDimension(dim); err != nil {
		return nil, err
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < 2 {
		return nil, fmt.Errorf("hnsw: M must be >= 2, got %d", opts.M)
	}
	if opts.EFConstruction < 1 || opts.EFSearch < 1 {
		return nil, fmt.Errorf("hnsw: ef values must be positive (construction=%d, search=%d)", opts.EFConstruction, opts.EFSearch)
	}

	return newGraph(dim, opts, 0), nil
}

func newGraph(dim int, opts Options, seedOffset int64) *HNSW {
	h := &HNSW{
		opts:                   opts,
		vectors:                index.NewVectors(dim),
		maxLevel:               -1,
		maxConnectionsPerLayer: opts.M,
		maxConnectionsLayer0:   2 * opts.M,
		layerMultiplier:        1 / math.Log(float64(opts.M)),
		rng:                    rand.New(rand.NewSource(opts.Seed + seedOffset)),
	}
	h.visitedPool.New = func() any {
		return newVisitedSet(h.vectors.Len() + 64)
	}
	return h
}

func (*HNSW) Kind() index.Kind { return index.KindHNSW }

func (*HNSW) State() index.State { return index.StateReady }

func (h *HNSW) Dimension() int { return h.vectors.Dimension() }

func (h *HNSW) Len() int { return h.vectors.Len() }

// Options returns the graph parameters.
func (h *HNSW) Options() Options { return h.opts }

// Vector returns a copy of the stored vector.
func (h *HNSW) Vector(id uint32) ([]float32, bool) { return h.vectors.Get(id) }

// Add inserts vectors into the graph. Either every vector is added or none is.
func (h *HNSW) Add(ctx context.Context, vectors [][]float32) (uint32, error) {
	for _, v := range vectors {
		if err := index.CheckVector(v, h.Dimension()); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := uint32(h.Len())
	for _, v := range vectors {
		h.insert(v)
	}
	return start, nil
}

func (h *HNSW) randomLevel() int {
	r := 1 - h.rng.Float64() // (0, 1]
	return min(int(math.Floor(-math.Log(r)*h.layerMultiplier)), maxLevel)
}

func (h *HNSW) maxConnections(level int) int {
	if level == 0 {
		return h.maxConnectionsLayer0
	}
	return h.maxConnectionsPerLayer
}

func (h *HNSW) insert(vec []float32) {
	id := h.vectors.Append(vec)
	level := h.randomLevel()
	h.links = append(h.links, make([][]uint32, level+1))

	if h.maxLevel < 0 {
		h.entryPoint = id
		h.maxLevel = level
		return
	}

	curr := h.greedy(vec, level)

	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(vec, curr, l, h.opts.EFConstruction)
		neighbors := h.selectNeighborsHeuristic(candidates, h.maxConnections(l))
		h.links[id][l] = neighbors

		for _, n := range neighbors {
			h.addConnection(n, id, l)
		}

		curr = candidates[0]
	}

	if level > h.maxLevel {
		h.entryPoint = id
		h.maxLevel = level
	}
}

// greedy descends from the top layer to stopLevel+1 following the closest neighbour.
func (h *HNSW) greedy(query []float32, stopLevel int) queue.Item {
	curr := queue.Item{ID: h.entryPoint, Distance: h.dist(query, h.entryPoint)}

	for level := h.maxLevel; level > stopLevel; level-- {
		changed := true
		for changed {
			changed = false
			for _, next := range h.links[curr.ID][level] {
				if d := h.dist(query, next); d < curr.Distance {
					curr = queue.Item{ID: next, Distance: d}
					changed = true
				}
			}
		}
	}

	return curr
}

// searchLayer returns up to ef nearest nodes on level in ascending distance.
func (h *HNSW) searchLayer(query []float32, ep queue.Item, level int, ef int) []queue.Item {
	visited := h.visitedPool.Get().(*visitedSet)
	visited.reset()
	defer h.visitedPool.Put(visited)

	candidates := queue.NewMin(ef)
	results := queue.NewMax(ef + 1)

	visited.visit(ep.ID)
	candidates.Push(ep)
	results.Push(ep)

	for candidates.Len() > 0 {
		curr, _ := candidates.Pop()

		worst, _ := results.Top()
		if curr.Distance > worst.Distance && results.Len() >= ef {
			break
		}

		for _, next := range h.links[curr.ID][level] {
			if !visited.visit(next) {
				continue
			}

			d := h.dist(query, next)
			if results.Len() >= ef {
				worst, _ := results.Top()
				if d > worst.Distance {
					continue
				}
			}

			candidates.Push(queue.Item{ID: next, Distance: d})
			results.Push(queue.Item{ID: next, Distance: d})
			if results.Len() > ef {
				results.Pop()
			}
		}
	}

	return results.Drain()
}

// selectNeighborsHeuristic keeps candidates that are closer to the base node
// than to any already selected neighbour, then fills up with the closest rest.
// candidates must be sorted by ascending distance.
func (h *HNSW) selectNeighborsHeuristic(candidates []queue.Item, m int) []uint32 {
	if len(candidates) <= m {
		out := make([]uint32, len(candidates))
		for i, c := range candidates {
			out[i] = c.ID
		}
		return out
	}

	result := make([]uint32, 0, m)
	selected := make([]bool, len(candidates))

	for i, cand := range candidates {
		if len(result) >= m {
			break
		}

		candVec := h.vectors.At(cand.ID)
		good := true
		for _, r := range result {
			if distance.SquaredL2(candVec, h.vectors.At(r)) < cand.Distance {
				good = false
				break
			}
		}

		if good {
			result = append(result, cand.ID)
			selected[i] = true
		}
	}

	for i, cand := range candidates {
		if len(result) >= m {
			break
		}
		if !selected[i] {
			result = append(result, cand.ID)
		}
	}

	return result
}

// addConnection links source to target on level, pruning when the list is full.
func (h *HNSW) addConnection(source, target uint32, level int) {
	conns := h.links[source][level]
	for _, c := range conns {
		if c == target {
			return
		}
	}

	maxM := h.maxConnections(level)
	if len(conns) < maxM {
		h.links[source][level] = append(conns, target)
		return
	}

	src := h.vectors.At(source)
	candidates := make([]queue.Item, 0, len(conns)+1)
	for _, c := range conns {
		candidates = append(candidates, queue.Item{ID: c, Distance: h.dist(src, c)})
	}
	candidates = append(candidates, queue.Item{ID: target, Distance: h.dist(src, target)})
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ID < candidates[j].ID
	})

	h.links[source][level] = h.selectNeighborsHeuristic(candidates, maxM)
}

func (h *HNSW) dist(v []float32, id uint32) float32 {
	return distance.SquaredL2(v, h.vectors.At(id))
}

// Search returns the k approximate nearest neighbours of query.
// When k covers the whole index the search is exact.
func (h *HNSW) Search(ctx context.Context, query []float32, k int) ([]index.Result, error) {
	n := h.Len()
	if k <= 0 || n == 0 {
		return []index.Result{}, nil
	}
	if err := index.CheckVector(query, h.Dimension()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k >= n {
		return h.bruteSearch(query, n), nil
	}

	ef := max(h.opts.EFSearch, k)
	ep := h.greedy(query, 0)
	items := h.searchLayer(query, ep, 0, ef)
	if len(items) > k {
		items = items[:k]
	}

	out := make([]index.Result, len(items))
	for i, it := range items {
		out[i] = index.Result{ID: it.ID, Distance: it.Distance}
	}
	return out, nil
}

func (h *HNSW) bruteSearch(query []float32, k int) []index.Result {
	top := index.NewTopK(k)
	for i := 0; i < h.Len(); i++ {
		top.Offer(uint32(i), h.dist(query, uint32(i)))
	}
	return top.Results()
}

// Stats describes the graph shape.
type Stats struct {
	Nodes         int
	MaxLevel      int
	NodesPerLevel []int
	AvgDegree0    float64
}

// Stats returns graph statistics.
func (h *HNSW) Stats() Stats {
	s := Stats{Nodes: h.Len(), MaxLevel: h.maxLevel}
	if h.maxLevel < 0 {
		return s
	}

	s.NodesPerLevel = make([]int, h.maxLevel+1)
	var edges0 int
	for _, layers := range h.links {
		for l := range layers {
			s.NodesPerLevel[l]++
		}
		edges0 += len(layers[0])
	}
	if s.Nodes > 0 {
		s.AvgDegree0 = float64(edges0) / float64(s.Nodes)
	}
	return s
}
