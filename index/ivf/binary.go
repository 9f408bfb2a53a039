package ivf

import (
	"fmt"
	"io"

	"github.com/hupe1980/vecstore/index"
)

// WriteTo serializes the index.
//
// After the header: NList, NProbe, TrainIterations, seed, then for a Ready
// index the centroid block, the raw vector block and one length-prefixed list
// per centroid. A Training index is written as Untrained.
func (ivf *IVF) WriteTo(w io.Writer) (int64, error) {
	state := ivf.state
	if state == index.StateTraining {
		state = index.StateUntrained
	}

	enc := index.NewEncoder(w)
	enc.Header(index.Header{
		Kind:      index.KindIVF,
		State:     state,
		Dimension: uint32(ivf.Dimension()),
		Count:     uint32(ivf.Len()),
	})
	enc.Uint32(uint32(ivf.opts.NList))
	enc.Uint32(uint32(ivf.opts.NProbe))
	enc.Uint32(uint32(ivf.opts.TrainIterations))
	enc.Uint64(uint64(ivf.opts.Seed))

	if state == index.StateReady {
		enc.Float32s(ivf.centroids)
		enc.Float32s(ivf.vectors.Raw())
		for _, l := range ivf.lists {
			enc.Uint32s(l)
		}
	}

	return enc.Result()
}

func read(h index.Header, r io.Reader) (*IVF, error) {
	dim := int(h.Dimension)
	count := int(h.Count)
	dec := index.NewDecoder(r)

	opts := Options{
		NList:           int(dec.Uint32()),
		NProbe:          int(dec.Uint32()),
		TrainIterations: int(dec.Uint32()),
		Seed:            int64(dec.Uint64()),
	}
	if err := dec.Err(); err != nil {
		return nil, err
	}
	if opts.NList < 1 || opts.NProbe < 1 || opts.NProbe > opts.NList {
		return nil, fmt.Errorf("%w: ivf nlist=%d nprobe=%d", index.ErrInvalidFormat, opts.NList, opts.NProbe)
	}

	ivf := &IVF{
		opts:    opts,
		state:   index.StateUntrained,
		vectors: index.NewVectors(dim),
	}

	switch h.State {
	case index.StateUntrained:
		if count != 0 {
			return nil, fmt.Errorf("%w: untrained ivf holds %d vectors", index.ErrInvalidFormat, count)
		}
		return ivf, nil
	case index.StateReady:
	default:
		return nil, fmt.Errorf("%w: ivf state %s", index.ErrInvalidFormat, h.State)
	}

	ivf.state = index.StateReady
	ivf.centroids = dec.Matrix(opts.NList, dim)
	data := dec.Matrix(count, dim)
	if err := dec.Err(); err != nil {
		return nil, err
	}
	ivf.vectors = index.VectorsFrom(dim, data)
	ivf.lists = make([][]uint32, opts.NList)

	seen := make([]bool, count)
	total := 0
	for i := range ivf.lists {
		l := dec.Uint32s(count)
		for _, id := range l {
			if int(id) >= count || seen[id] {
				dec.Fail(fmt.Errorf("%w: ivf list %d holds invalid or duplicate id %d", index.ErrInvalidFormat, i, id))
				break
			}
			seen[id] = true
		}
		total += len(l)
		ivf.lists[i] = l
	}

	if err := dec.Err(); err != nil {
		return nil, err
	}
	if total != count {
		return nil, fmt.Errorf("%w: ivf lists hold %d of %d vectors", index.ErrInvalidFormat, total, count)
	}

	return ivf, nil
}
