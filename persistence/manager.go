package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/vecstore/blobstore"
	"github.com/hupe1980/vecstore/catalog"
	"github.com/hupe1980/vecstore/codec"
	"github.com/hupe1980/vecstore/index"
)

// Options configures a Manager.
type Options struct {
	// Codec encodes the JSON artifacts. Default: codec.Default.
	Codec codec.Codec

	// Compression applies to the index artifact. Default: none.
	Compression Compression

	// Now supplies timestamps for placeholder records.
	Now func() time.Time
}

// Manager reads and writes the artifacts of a store.
type Manager struct {
	store blobstore.BlobStore
	opts  Options
}

// NewManager creates a manager on top of store.
func NewManager(store blobstore.BlobStore, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Codec:       codec.Default,
		Compression: CompressionNone,
		Now:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{store: store, opts: opts}
}

// BlobStore returns the underlying store.
func (m *Manager) BlobStore() blobstore.BlobStore { return m.store }

// Snapshot is the state persisted for one model key.
type Snapshot struct {
	Index      index.Index
	Records    []catalog.Record
	Namespaces map[string][]uint32
}

// SaveStats describes a completed save.
type SaveStats struct {
	IndexBytes      int
	NamespacesBytes int
	MetadataBytes   int
	Duration        time.Duration
}

// Bytes returns the total number of bytes written.
func (s SaveStats) Bytes() int {
	return s.IndexBytes + s.NamespacesBytes + s.MetadataBytes
}

// Save writes the index, namespace and metadata artifacts, in that order.
func (m *Manager) Save(ctx context.Context, key string, snap Snapshot) (SaveStats, error) {
	start := time.Now()
	var stats SaveStats

	var buf bytes.Buffer
	if _, err := snap.Index.WriteTo(&buf); err != nil {
		return stats, fmt.Errorf("persistence: encode index: %w", err)
	}

	framed, err := encodeFrame(buf.Bytes(), m.opts.Compression)
	if err != nil {
		return stats, fmt.Errorf("persistence: %w", err)
	}

	namespaces := snap.Namespaces
	if namespaces == nil {
		namespaces = map[string][]uint32{}
	}
	nsData, err := m.opts.Codec.Marshal(namespaces)
	if err != nil {
		return stats, fmt.Errorf("persistence: encode namespaces: %w", err)
	}

	records := snap.Records
	if records == nil {
		records = []catalog.Record{}
	}
	mdData, err := m.opts.Codec.Marshal(records)
	if err != nil {
		return stats, fmt.Errorf("persistence: encode metadata: %w", err)
	}

	writes := []struct {
		name string
		data []byte
	}{
		{IndexName(key), framed},
		{NamespacesName(key), nsData},
		{MetadataName(key), mdData},
	}
	for _, w := range writes {
		if err := m.store.Put(ctx, w.name, w.data); err != nil {
			return stats, fmt.Errorf("persistence: write %s: %w", w.name, err)
		}
	}

	stats.IndexBytes = len(framed)
	stats.NamespacesBytes = len(nsData)
	stats.MetadataBytes = len(mdData)
	stats.Duration = time.Since(start)
	return stats, nil
}

// Loaded is the state restored by Load.
type Loaded struct {
	Index      index.Index
	Catalog    *catalog.Catalog
	Namespaces *catalog.Namespaces

	// Padded is the number of placeholder records appended because the
	// metadata artifact was shorter than the index.
	Padded int
}

// Load restores the artifacts of key and checks them against each other and
// against the expected dimension.
func (m *Manager) Load(ctx context.Context, key string, dim int) (*Loaded, error) {
	names := []string{IndexName(key), NamespacesName(key), MetadataName(key)}
	blobs := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := blobstore.ReadAll(ctx, m.store, name)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrAbsent, name)
			}
			return nil, fmt.Errorf("persistence: read %s: %w", name, err)
		}
		blobs[name] = data
	}

	corrupt := func(artifact string, err error) error {
		return &CorruptionError{Key: key, Artifact: artifact, Err: err}
	}

	payload, err := decodeFrame(blobs[IndexName(key)])
	if err != nil {
		return nil, corrupt(IndexName(key), err)
	}

	hdr, err := index.ReadHeader(bytes.NewReader(payload))
	if err != nil {
		return nil, corrupt(IndexName(key), err)
	}
	if int(hdr.Dimension) != dim {
		return nil, corrupt(IndexName(key), &index.ErrDimensionMismatch{Expected: dim, Actual: int(hdr.Dimension)})
	}

	idx, err := index.Read(bytes.NewReader(payload))
	if err != nil {
		return nil, corrupt(IndexName(key), err)
	}
	if idx.Dimension() != dim {
		return nil, corrupt(IndexName(key), &index.ErrDimensionMismatch{Expected: dim, Actual: idx.Dimension()})
	}
	ntotal := idx.Len()

	var records []catalog.Record
	if err := m.opts.Codec.Unmarshal(blobs[MetadataName(key)], &records); err != nil {
		return nil, corrupt(MetadataName(key), err)
	}
	if len(records) > ntotal {
		return nil, corrupt(MetadataName(key), fmt.Errorf("%d records for %d vectors", len(records), ntotal))
	}

	padded := ntotal - len(records)
	now := m.opts.Now()
	for i := len(records); i < ntotal; i++ {
		records = append(records, catalog.Placeholder(uint32(i), now))
	}

	cat, err := catalog.Restore(records)
	if err != nil {
		return nil, corrupt(MetadataName(key), err)
	}

	var nsMap map[string][]uint32
	if err := m.opts.Codec.Unmarshal(blobs[NamespacesName(key)], &nsMap); err != nil {
		return nil, corrupt(NamespacesName(key), err)
	}
	ns, err := catalog.FromMap(nsMap, ntotal)
	if err != nil {
		return nil, corrupt(NamespacesName(key), err)
	}
	if err := reconcileNamespaces(records, ntotal-padded, ns); err != nil {
		return nil, corrupt(NamespacesName(key), err)
	}

	return &Loaded{Index: idx, Catalog: cat, Namespaces: ns, Padded: padded}, nil
}

// Remove deletes all artifacts of key.
func (m *Manager) Remove(ctx context.Context, key string) error {
	var errs []error
	for _, name := range []string{IndexName(key), NamespacesName(key), MetadataName(key)} {
		if err := m.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("persistence: delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Keys returns the model keys that have an index artifact.
func (m *Manager) Keys(ctx context.Context) ([]string, error) {
	names, err := m.store.List(ctx, "index_")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(names))
	for _, n := range names {
		if len(n) > len("index_")+len(".idx") && n[len(n)-len(".idx"):] == ".idx" {
			keys = append(keys, n[len("index_"):len(n)-len(".idx")])
		}
	}
	return keys, nil
}

// reconcileNamespaces checks namespace membership against the namespace
// recorded on each of the first persisted records. Padded placeholders are
// dropped from their namespaces.
func reconcileNamespaces(records []catalog.Record, persisted int, ns *catalog.Namespaces) error {
	for i, rec := range records {
		idx := uint32(i)
		owner, member := ns.Namespace(idx)

		if i >= persisted {
			if member {
				ns.Unassign(owner, idx)
			}
			continue
		}

		switch {
		case member && owner != rec.Namespace:
			return fmt.Errorf("index %d listed under namespace %q, record has %q", i, owner, rec.Namespace)
		case !member && !rec.Deleted && rec.Namespace != "":
			return fmt.Errorf("live index %d missing from namespace %q", i, rec.Namespace)
		}
	}
	return nil
}
