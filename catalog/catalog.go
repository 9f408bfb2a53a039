package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateID is returned when a record id is already present.
	ErrDuplicateID = errors.New("catalog: duplicate record id")

	// ErrNotDense is returned when restored records are not numbered 0..n-1 in order.
	ErrNotDense = errors.New("catalog: internal indices are not dense")
)

// Catalog is an append-only array of records aligned with index positions.
type Catalog struct {
	records []Record
	byID    map[string]uint32
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{byID: make(map[string]uint32)}
}

// Len returns the number of records, deleted ones included.
func (c *Catalog) Len() int { return len(c.records) }

// Append assigns consecutive internal indices starting at Len and appends the
// records. It returns the first assigned index. Nothing is appended on error.
func (c *Catalog) Append(records ...Record) (uint32, error) {
	start := uint32(len(c.records))

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("catalog: empty record id")
		}
		if _, ok := c.byID[r.ID]; ok {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		if _, ok := seen[r.ID]; ok {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	for i, r := range records {
		r.InternalIndex = start + uint32(i)
		c.records = append(c.records, r)
		c.byID[r.ID] = r.InternalIndex
	}
	return start, nil
}

// Get returns a copy of the record at internal index i.
func (c *Catalog) Get(i uint32) (Record, bool) {
	if int(i) >= len(c.records) {
		return Record{}, false
	}
	return c.records[i].Clone(), true
}

// ByID returns a copy of the record with the given id, deleted or not.
func (c *Catalog) ByID(id string) (Record, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Record{}, false
	}
	return c.records[i].Clone(), true
}

// IndexOf returns the internal index of id.
func (c *Catalog) IndexOf(id string) (uint32, bool) {
	i, ok := c.byID[id]
	return i, ok
}

// IsDeleted reports whether the record at i is deleted. Unknown indices count as deleted.
func (c *Catalog) IsDeleted(i uint32) bool {
	if int(i) >= len(c.records) {
		return true
	}
	return c.records[i].Deleted
}

// MarkDeleted flags the record at i as deleted. It reports whether the record
// was live before the call.
func (c *Catalog) MarkDeleted(i uint32, at time.Time) bool {
	if int(i) >= len(c.records) || c.records[i].Deleted {
		return false
	}
	at = at.UTC()
	c.records[i].Deleted = true
	c.records[i].DeletedAt = &at
	return true
}

// Filter returns the internal indices of records matching pred in ascending order.
func (c *Catalog) Filter(pred func(Record) bool) []uint32 {
	var out []uint32
	for i := range c.records {
		if pred(c.records[i]) {
			out = append(out, uint32(i))
		}
	}
	return out
}

// Active returns the number of records not deleted.
func (c *Catalog) Active() int {
	n := 0
	for i := range c.records {
		if !c.records[i].Deleted {
			n++
		}
	}
	return n
}

// Records returns a snapshot copy of all records.
func (c *Catalog) Records() []Record {
	out := make([]Record, len(c.records))
	for i := range c.records {
		out[i] = c.records[i].Clone()
	}
	return out
}

// Restore builds a catalog from persisted records. Record i must carry
// InternalIndex i and ids must be unique.
func Restore(records []Record) (*Catalog, error) {
	c := &Catalog{
		records: make([]Record, 0, len(records)),
		byID:    make(map[string]uint32, len(records)),
	}

	for i, r := range records {
		if r.InternalIndex != uint32(i) {
			return nil, fmt.Errorf("%w: record %d has internal index %d", ErrNotDense, i, r.InternalIndex)
		}
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: record %d has empty id", i)
		}
		if _, ok := c.byID[r.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		c.byID[r.ID] = uint32(i)
		c.records = append(c.records, r)
	}

	return c, nil
}
