// Package index provides the nearest-neighbour index abstraction of the store.
//
// Three kinds are supported:
//
//   - Flat: exact brute-force search
//   - HNSW: hierarchical navigable small world graph with a fixed degree
//   - IVF: inverted file over k-means centroids; must be trained first
//
// # Index Selection
//
//   - Flat: up to ~100K vectors, exact results
//   - HNSW: larger corpora where ~95-99% recall is acceptable
//   - IVF: large corpora with a representative training sample available
//
// # Positions
//
// Every index is append-only. The vector passed in the i-th position of all
// Add calls ever made is addressed by internal index i for the lifetime of the
// index; nothing is reordered or removed. Distances are squared L2 and results
// are returned in ascending distance.
//
// # Training State
//
// Kinds that need training report a State. An IVF index starts Untrained,
// moves to Training while k-means runs, and becomes Ready afterwards. Add and
// Search on an index that is not Ready fail with ErrNotTrained instead of
// silently degrading.
//
// # Subpackages
//
//   - flat: exact search
//   - hnsw: graph search
//   - ivf: inverted-file search
//
// Subpackages register themselves with New and Read from init functions.
package index
