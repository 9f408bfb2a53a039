// Package catalog correlates vector positions with caller-facing records.
//
// A Catalog is a dense array of Records where the record at position i
// describes the i-th vector added to the index. Namespaces maps caller-defined
// partition labels to roaring bitmaps of internal indices; an index belongs to
// at most one namespace.
//
// Neither type is safe for concurrent use. The owning store serialises access.
package catalog
