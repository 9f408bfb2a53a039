// Package persistence saves and restores a store per embedding model.
//
// Each model key owns three artifacts in a blobstore.BlobStore:
//
//	index_<key>.idx         framed, optionally compressed index binary
//	namespaces_<key>.json   namespace -> ascending internal indices
//	metadata_<key>.json     array of catalog records, record i = vector i
//
// Save writes them in that order, each one atomically. Load requires all
// three; a missing artifact yields ErrAbsent and any inconsistency yields a
// *CorruptionError so callers can fall back to an empty store instead of
// serving partial state.
//
// # Index Framing
//
//	0  magic        "VSP1"
//	4  version      uint8
//	5  compression  uint8 (0 none, 1 lz4, 2 zstd)
//	6  reserved     uint16
//	8  crc32        uint32 (IEEE, of the uncompressed payload)
//	12 raw length   uint64
//	20 stored len   uint64
//	28 payload
//
// All integers are little endian.
package persistence
