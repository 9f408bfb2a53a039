//go:build !unix

package persistence

// FileLock is a no-op lock on platforms without flock.
type FileLock struct{}

// Lock returns a no-op lock.
func Lock(dir, key string) (*FileLock, error) {
	return &FileLock{}, nil
}

// Unlock is a no-op.
func (l *FileLock) Unlock() error { return nil }
