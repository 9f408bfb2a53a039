package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInjected is the error returned by faults without their own Err.
var ErrInjected = errors.New("fs: injected fault")

// Fault defines the failure applied to files whose base name contains a rule's pattern.
type Fault struct {
	// FailAfterBytes fails writes once this many bytes were written to the file. -1 disables.
	FailAfterBytes int64
	FailOnSync     bool
	FailOnRename   bool // matched against the rename target
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and injects errors by file name.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules map[string]Fault
	hits  map[string]int
}

// NewFaultyFS creates a FaultyFS wrapping fsys (or Default if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{
		FS:    fsys,
		rules: make(map[string]Fault),
		hits:  make(map[string]int),
	}
}

// AddRule applies fault to files whose base name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// ClearRules removes all rules.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.rules)
}

// Hits returns how many times a rule with pattern fired.
func (f *FaultyFS) Hits(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *FaultyFS) match(name string) (string, Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := filepath.Base(name)
	for pattern, rule := range f.rules {
		if strings.Contains(base, pattern) {
			return pattern, rule, true
		}
	}
	return "", Fault{}, false
}

func (f *FaultyFS) hit(pattern string) {
	f.mu.Lock()
	f.hits[pattern]++
	f.mu.Unlock()
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	pattern, fault, ok := f.match(name)
	if !ok {
		return file, nil
	}
	return &faultyFile{File: file, fs: f, pattern: pattern, fault: fault}, nil
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if pattern, fault, ok := f.match(newpath); ok && fault.FailOnRename {
		f.hit(pattern)
		return fault.err()
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Remove(name string) error { return f.FS.Remove(name) }

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error { return f.FS.MkdirAll(path, perm) }

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) { return f.FS.ReadDir(name) }

type faultyFile struct {
	File
	fs      *FaultyFS
	pattern string
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		ff.fs.hit(ff.pattern)
		return 0, ff.fault.err()
	}

	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		ff.fs.hit(ff.pattern)
		return ff.fault.err()
	}
	return ff.File.Sync()
}
