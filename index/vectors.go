package index

// Vectors is a dense, append-only columnar vector store.
// Vector i occupies data[i*dim : (i+1)*dim].
type Vectors struct {
	dim  int
	data []float32
}

// NewVectors creates an empty store for vectors of dimension dim.
func NewVectors(dim int) *Vectors {
	return &Vectors{dim: dim}
}

// VectorsFrom wraps data, which must hold a whole number of vectors.
func VectorsFrom(dim int, data []float32) *Vectors {
	return &Vectors{dim: dim, data: data}
}

// Dimension returns the vector dimensionality.
func (v *Vectors) Dimension() int { return v.dim }

// Len returns the number of stored vectors.
func (v *Vectors) Len() int {
	if v.dim == 0 {
		return 0
	}
	return len(v.data) / v.dim
}

// Append copies vec into the store and returns its position.
func (v *Vectors) Append(vec []float32) uint32 {
	id := uint32(v.Len())
	v.data = append(v.data, vec...)
	return id
}

// At returns the vector at position i without copying.
// Callers must not modify the returned slice.
func (v *Vectors) At(i uint32) []float32 {
	off := int(i) * v.dim
	return v.data[off : off+v.dim : off+v.dim]
}

// Get returns a copy of the vector at position i.
func (v *Vectors) Get(i uint32) ([]float32, bool) {
	if int(i) >= v.Len() {
		return nil, false
	}
	out := make([]float32, v.dim)
	copy(out, v.At(i))
	return out, true
}

// Raw returns the backing array.
func (v *Vectors) Raw() []float32 { return v.data }
