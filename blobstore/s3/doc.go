// Package s3 provides a BlobStore implementation for Amazon S3.
//
// Artifacts are uploaded with the SDK's upload manager, which switches to
// multipart uploads for large index files, and read back with GetObject.
//
//	blobs, err := s3.New(ctx, "my-bucket", "vecstore/")
//	store, err := vecstore.Open(ctx, provider, vecstore.WithBlobStore(blobs))
//
// S3-compatible endpoints are supported through WithEndpoint.
package s3
