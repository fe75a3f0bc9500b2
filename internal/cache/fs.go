package cache

import (
	"context"
	"io"
)

// FileSystem is the storage backend under a package cache.
//
// Backends differ per platform (a directory on disk, a sandboxed key/value
// store on web platforms) and are chosen at configuration time. Names are
// flat file names relative to the backend's root.
type FileSystem interface {
	// Exists reports whether name is present.
	Exists(name string) bool

	// Open opens name for reading.
	Open(name string) (io.ReadCloser, error)

	// Create creates or truncates name. Content is visible once the
	// writer is closed.
	Create(name string) (io.WriteCloser, error)

	// Rename replaces to with from.
	Rename(from, to string) error

	// Remove deletes name. Removing a missing name is not an error.
	Remove(name string) error

	// Import copies srcPath, a host file outside the cache, into name.
	Import(ctx context.Context, srcPath, name string) error

	// List returns every stored name.
	List() ([]string, error)
}

var (
	_ FileSystem = (*DiskFS)(nil)
	_ FileSystem = (*MemoryFS)(nil)
)
