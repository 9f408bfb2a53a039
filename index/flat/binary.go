package flat

import (
	"io"

	"github.com/hupe1980/vecstore/index"
)

// WriteTo writes the header followed by the raw vector block.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	enc := index.NewEncoder(w)
	enc.Header(index.Header{
		Kind:      index.KindFlat,
		State:     index.StateReady,
		Dimension: uint32(f.Dimension()),
		Count:     uint32(f.Len()),
	})
	enc.Float32s(f.vectors.Raw())
	return enc.Result()
}

func read(h index.Header, r io.Reader) (*Flat, error) {
	dim := int(h.Dimension)
	dec := index.NewDecoder(r)
	data := dec.Matrix(int(h.Count), dim)
	if err := dec.Err(); err != nil {
		return nil, err
	}
	return &Flat{vectors: index.VectorsFrom(dim, data)}, nil
}
