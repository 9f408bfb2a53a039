package persistence

import (
	"errors"
	"fmt"
)

// ErrAbsent is returned by Load when any artifact of the model key is missing.
var ErrAbsent = errors.New("persistence: artifacts absent")

// ErrLocked is returned when another process holds the store lock.
var ErrLocked = errors.New("persistence: store is locked by another process")

// CorruptionError reports artifacts that exist but cannot be served.
type CorruptionError struct {
	Key      string // model key
	Artifact string // blob name
	Err      error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("persistence: corrupt artifact %s (model %s): %v", e.Artifact, e.Key, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// IsCorruption reports whether err is or wraps a *CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}
