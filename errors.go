package vecstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecstore/index"
	"github.com/hupe1980/vecstore/persistence"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("vecstore: store is closed")

	// ErrMetadataLength is returned when metadatas and texts differ in length.
	ErrMetadataLength = errors.New("vecstore: metadatas length does not match texts length")

	// ErrNonFiniteVector is returned when a provider yields NaN or Inf components.
	ErrNonFiniteVector = errors.New("vecstore: vector contains non-finite values")

	// ErrTrainingUnsupported is returned by Train for index kinds without a training step.
	ErrTrainingUnsupported = errors.New("vecstore: index kind does not support training")

	// ErrNotTrained is returned when adding to an untrained ivf index.
	ErrNotTrained = index.ErrNotTrained

	// ErrLocked is returned by Open when another process holds the store lock.
	ErrLocked = persistence.ErrLocked
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vecstore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("vecstore: invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var id *index.ErrInvalidDimension
	if errors.As(err, &id) {
		return &ErrInvalidDimension{Dimension: id.Dimension, cause: err}
	}

	return err
}
