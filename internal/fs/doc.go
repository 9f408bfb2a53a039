// Package fs abstracts the filesystem calls made by the local blob store so
// tests can inject I/O failures.
//
// Production code uses Default ([LocalFS]). Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("metadata_", fs.Fault{FailAfterBytes: 0})
//	store, _ := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
package fs
