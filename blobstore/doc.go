// Package blobstore provides the storage abstraction for persisted store artifacts.
//
// Artifacts are small, whole-object blobs (an index file and two JSON files per
// embedding model) that are written atomically and read in full.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, temp file + fsync + rename
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 (and compatible endpoints)
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)       // ErrNotFound if missing
//	    Put(ctx, name, data) error          // atomic replace
//	    Delete(ctx, name) error             // missing is not an error
//	    List(ctx, prefix) ([]string, error) // sorted names
//	}
package blobstore
