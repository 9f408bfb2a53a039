package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrNotTrained is returned when adding to or searching an index that
	// requires training and is not Ready.
	ErrNotTrained = errors.New("index is not trained")

	// ErrInsufficientTrainingData is returned when too few training vectors are supplied.
	ErrInsufficientTrainingData = errors.New("insufficient training data")

	// ErrAlreadyPopulated is returned when training an index that already holds vectors.
	ErrAlreadyPopulated = errors.New("cannot train a populated index")

	// ErrEmptyVector is returned for zero-length vectors.
	ErrEmptyVector = errors.New("empty vector")

	// ErrUnknownKind is returned for unsupported index kinds.
	ErrUnknownKind = errors.New("unknown index kind")
)

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// Kind identifies an index implementation. The values are part of the binary
// format and must not change.
type Kind uint8

const (
	KindFlat Kind = 1
	KindHNSW Kind = 2
	KindIVF  Kind = 3
)

// String returns the configuration name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindHNSW:
		return "hnsw"
	case KindIVF:
		return "ivf"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a configuration name ("flat", "hnsw", "ivf").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "":
		return KindFlat, nil
	case "hnsw":
		return KindHNSW, nil
	case "ivf":
		return KindIVF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// State is the training state of an index.
type State uint8

const (
	StateUntrained State = iota
	StateTraining
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUntrained:
		return "untrained"
	case StateTraining:
		return "training"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Result is a single search hit.
type Result struct {
	// ID is the internal index of the vector.
	ID uint32

	// Distance is the squared L2 distance between the query and the vector.
	Distance float32
}

// Index is an append-only nearest-neighbour index.
//
// Search and Vector are safe for concurrent use with each other. Add and
// Train require exclusive access.
type Index interface {
	// Kind returns the implementation kind.
	Kind() Kind

	// State returns the training state. Kinds without training are always Ready.
	State() State

	// Dimension returns the fixed vector dimensionality.
	Dimension() int

	// Len returns the number of vectors ever added.
	Len() int

	// Add appends vectors and returns the internal index of the first one.
	Add(ctx context.Context, vectors [][]float32) (uint32, error)

	// Search returns up to k nearest vectors in ascending distance.
	// It returns every vector when fewer than k exist and nothing when the
	// index is empty or k <= 0.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)

	// Vector returns the stored vector at id.
	Vector(id uint32) ([]float32, bool)

	// WriteTo writes the binary representation of the index.
	WriteTo(w io.Writer) (int64, error)
}

// Trainer is implemented by indexes that must be trained before use.
type Trainer interface {
	// Train learns the index structure from representative vectors.
	Train(ctx context.Context, vectors [][]float32) error
}

// Options configures index construction. Each kind reads the fields it needs.
type Options struct {
	// Dimension is the fixed vector dimensionality (required).
	Dimension int

	// M is the HNSW graph degree (layer 0 uses 2*M).
	M int

	// EFConstruction is the HNSW candidate list size used while inserting.
	EFConstruction int

	// EFSearch is the HNSW candidate list size used while searching.
	EFSearch int

	// NList is the number of IVF lists (centroids).
	NList int

	// NProbe is the number of IVF lists scanned per query.
	NProbe int

	// TrainIterations bounds k-means iterations during IVF training.
	TrainIterations int

	// Seed makes level assignment and training reproducible.
	Seed int64
}

// DefaultOptions contains the default index options.
var DefaultOptions = Options{
	M:               16,
	EFConstruction:  200,
	EFSearch:        64,
	NList:           100,
	NProbe:          8,
	TrainIterations: 25,
	Seed:            42,
}

// ValidateDimension checks a configured dimension.
func ValidateDimension(dim int) error {
	if dim <= 0 {
		return &ErrInvalidDimension{Dimension: dim}
	}
	return nil
}

// CheckVector validates v against the expected dimension.
func CheckVector(v []float32, dim int) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	if len(v) != dim {
		return &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
	}
	return nil
}

// SearchBatch runs an independent search per query.
func SearchBatch(ctx context.Context, idx Index, queries [][]float32, k int) ([][]Result, error) {
	out := make([][]Result, len(queries))
	for i, q := range queries {
		res, err := idx.Search(ctx, q, k)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// EmptyCloner is implemented by indexes that can produce an empty index
// sharing their learned structure, such as trained IVF centroids.
type EmptyCloner interface {
	CloneEmpty() Index
}
