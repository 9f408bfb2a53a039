package index

import (
	"fmt"
	"io"
	"sync"
)

// Constructor builds an empty index of a registered kind.
type Constructor func(opts Options) (Index, error)

// BinaryLoader decodes an index whose header has already been consumed.
type BinaryLoader func(h Header, r io.Reader) (Index, error)

var (
	registryMu   sync.RWMutex
	constructors = map[Kind]Constructor{}
	loaders      = map[Kind]BinaryLoader{}
)

// RegisterConstructor registers a constructor for kind.
// Subpackages call this from init functions.
func RegisterConstructor(kind Kind, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	constructors[kind] = c
}

// RegisterBinaryLoader registers a loader for kind.
// Subpackages call this from init functions.
func RegisterBinaryLoader(kind Kind, l BinaryLoader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	loaders[kind] = l
}

// New creates an empty index of the given kind and dimension.
func New(kind Kind, dim int, optFns ...func(o *Options)) (Index, error) {
	if err := ValidateDimension(dim); err != nil {
		return nil, err
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Dimension = dim

	registryMu.RLock()
	c, ok := constructors[kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (not registered)", ErrUnknownKind, kind)
	}

	return c(opts)
}

// Read decodes an index written by Index.WriteTo.
func Read(r io.Reader) (Index, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	registryMu.RLock()
	l, ok := loaders[h.Kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (no loader registered)", ErrUnknownKind, h.Kind)
	}

	return l(h, r)
}
