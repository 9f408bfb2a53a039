package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrNamespaceConflict is returned when an index is assigned to a second namespace.
	ErrNamespaceConflict = errors.New("catalog: index already belongs to another namespace")

	// ErrIndexOutOfRange is returned when restored namespaces reference unknown indices.
	ErrIndexOutOfRange = errors.New("catalog: namespace member out of range")
)

// Namespaces maps namespace labels to sets of internal indices.
type Namespaces struct {
	sets  map[string]*roaring.Bitmap
	owner map[uint32]string
}

// NewNamespaces returns an empty namespace index.
func NewNamespaces() *Namespaces {
	return &Namespaces{
		sets:  make(map[string]*roaring.Bitmap),
		owner: make(map[uint32]string),
	}
}

// Assign adds i to ns. The empty namespace is global and never tracked.
// Reassigning to the owning namespace is a no-op.
func (n *Namespaces) Assign(ns string, i uint32) error {
	if ns == "" {
		return nil
	}
	if cur, ok := n.owner[i]; ok {
		if cur == ns {
			return nil
		}
		return fmt.Errorf("%w: index %d in %q, requested %q", ErrNamespaceConflict, i, cur, ns)
	}

	set, ok := n.sets[ns]
	if !ok {
		set = roaring.New()
		n.sets[ns] = set
	}
	set.Add(i)
	n.owner[i] = ns
	return nil
}

// Unassign removes i from ns and reports whether it was a member.
func (n *Namespaces) Unassign(ns string, i uint32) bool {
	set, ok := n.sets[ns]
	if !ok || !set.Contains(i) {
		return false
	}
	set.Remove(i)
	delete(n.owner, i)
	if set.IsEmpty() {
		delete(n.sets, ns)
	}
	return true
}

// Members returns the indices of ns in ascending order.
func (n *Namespaces) Members(ns string) []uint32 {
	set, ok := n.sets[ns]
	if !ok {
		return []uint32{}
	}
	return set.ToArray()
}

// Contains reports whether i belongs to ns.
func (n *Namespaces) Contains(ns string, i uint32) bool {
	set, ok := n.sets[ns]
	return ok && set.Contains(i)
}

// Namespace returns the namespace owning i.
func (n *Namespaces) Namespace(i uint32) (string, bool) {
	ns, ok := n.owner[i]
	return ns, ok
}

// Counts returns the member count per namespace.
func (n *Namespaces) Counts() map[string]int {
	out := make(map[string]int, len(n.sets))
	for ns, set := range n.sets {
		out[ns] = int(set.GetCardinality())
	}
	return out
}

// Names returns the namespaces with at least one member, sorted.
func (n *Namespaces) Names() []string {
	names := make([]string, 0, len(n.sets))
	for ns := range n.sets {
		names = append(names, ns)
	}
	slices.Sort(names)
	return names
}

// ToMap returns the persisted representation.
func (n *Namespaces) ToMap() map[string][]uint32 {
	out := make(map[string][]uint32, len(n.sets))
	for ns, set := range n.sets {
		out[ns] = set.ToArray()
	}
	return out
}

// FromMap rebuilds a namespace index, rejecting members >= ntotal and
// indices listed under more than one namespace.
func FromMap(m map[string][]uint32, ntotal int) (*Namespaces, error) {
	n := NewNamespaces()
	for _, ns := range slices.Sorted(maps.Keys(m)) {
		if ns == "" {
			return nil, fmt.Errorf("catalog: empty namespace name")
		}
		for _, i := range m[ns] {
			if int(i) >= ntotal {
				return nil, fmt.Errorf("%w: %q lists %d, total %d", ErrIndexOutOfRange, ns, i, ntotal)
			}
			if err := n.Assign(ns, i); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}
