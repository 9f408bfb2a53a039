package hnsw

import (
	"fmt"
	"io"

	"github.com/hupe1980/vecstore/index"
)

// WriteTo serializes the graph.
//
// After the header: M, EFConstruction, EFSearch, seed, entry point,
// maxLevel+1, the raw vector block, then per node its layer count followed by
// a length-prefixed neighbour list per layer.
func (h *HNSW) WriteTo(w io.Writer) (int64, error) {
	enc := index.NewEncoder(w)
	enc.Header(index.Header{
		Kind:      index.KindHNSW,
		State:     index.StateReady,
		Dimension: uint32(h.Dimension()),
		Count:     uint32(h.Len()),
	})
	enc.Uint32(uint32(h.opts.M))
	enc.Uint32(uint32(h.opts.EFConstruction))
	enc.Uint32(uint32(h.opts.EFSearch))
	enc.Uint64(uint64(h.opts.Seed))
	enc.Uint32(h.entryPoint)
	enc.Uint32(uint32(h.maxLevel + 1))
	enc.Float32s(h.vectors.Raw())

	for _, layers := range h.links {
		enc.Uint32(uint32(len(layers)))
		for _, conns := range layers {
			enc.Uint32s(conns)
		}
	}

	return enc.Result()
}

func read(hdr index.Header, r io.Reader) (*HNSW, error) {
	dim := int(hdr.Dimension)
	count := int(hdr.Count)
	dec := index.NewDecoder(r)

	opts := Options{
		M:              int(dec.Uint32()),
		EFConstruction: int(dec.Uint32()),
		EFSearch:       int(dec.Uint32()),
		Seed:           int64(dec.Uint64()),
	}
	entry := dec.Uint32()
	levels := int(dec.Uint32()) - 1
	data := dec.Matrix(count, dim)
	if err := dec.Err(); err != nil {
		return nil, err
	}

	if opts.M < 2 || opts.EFConstruction < 1 || opts.EFSearch < 1 {
		return nil, fmt.Errorf("%w: hnsw parameters M=%d efc=%d efs=%d", index.ErrInvalidFormat, opts.M, opts.EFConstruction, opts.EFSearch)
	}
	if levels > maxLevel || (count > 0 && (levels < 0 || int(entry) >= count)) {
		return nil, fmt.Errorf("%w: hnsw entry point %d at level %d", index.ErrInvalidFormat, entry, levels)
	}

	// Reseed past the nodes already drawn so later inserts stay reproducible.
	h := newGraph(dim, opts, int64(count))
	h.vectors = index.VectorsFrom(dim, data)
	h.links = make([][][]uint32, count)
	if count > 0 {
		h.entryPoint = entry
		h.maxLevel = levels
	}

	for id := range count {
		n := int(dec.Uint32())
		if dec.Err() != nil {
			break
		}
		if n < 1 || n > levels+1 {
			dec.Fail(fmt.Errorf("%w: node %d has %d layers", index.ErrInvalidFormat, id, n))
			break
		}

		h.links[id] = make([][]uint32, n)
		for l := range n {
			conns := dec.Uint32s(h.maxConnections(l))
			for _, c := range conns {
				if int(c) >= count {
					dec.Fail(fmt.Errorf("%w: node %d links to %d", index.ErrInvalidFormat, id, c))
				}
			}
			h.links[id][l] = conns
		}
	}

	if err := dec.Err(); err != nil {
		return nil, err
	}
	if count > 0 && len(h.links[entry]) != levels+1 {
		return nil, fmt.Errorf("%w: entry point %d is not on the top layer", index.ErrInvalidFormat, entry)
	}

	return h, nil
}
