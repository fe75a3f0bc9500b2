package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskFS stores cache files in a single directory on the local disk.
//
// Names passed to DiskFS are flat file names; they are joined with the
// root directory. The root is created on first write.
//
// Example:
//
//	disk := cache.NewDiskFS("/var/lib/game/cache/main")
//	w, err := disk.Create("core.bundle.part")
type DiskFS struct {
	root string
}

// NewDiskFS returns a DiskFS rooted at root.
func NewDiskFS(root string) *DiskFS {
	return &DiskFS{root: root}
}

// Root returns the cache directory.
func (d *DiskFS) Root() string {
	return d.root
}

func (d *DiskFS) path(name string) string {
	return filepath.Join(d.root, name)
}

// Exists reports whether a regular file with this name is present.
func (d *DiskFS) Exists(name string) bool {
	info, err := os.Stat(d.path(name))
	return err == nil && info.Mode().IsRegular()
}

// Open opens a cache file for reading.
func (d *DiskFS) Open(name string) (io.ReadCloser, error) {
	return os.Open(d.path(name))
}

// Create creates (or truncates) a cache file for writing.
//
// The cache directory is created with mode 0755 if it does not exist yet.
func (d *DiskFS) Create(name string) (io.WriteCloser, error) {
	if err := EnsureDir(d.root); err != nil {
		return nil, err
	}
	return os.Create(d.path(name))
}

// Rename atomically replaces to with from.
func (d *DiskFS) Rename(from, to string) error {
	return os.Rename(d.path(from), d.path(to))
}

// Remove deletes a cache file. Removing a missing file is not an error.
func (d *DiskFS) Remove(name string) error {
	err := os.Remove(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Import copies a file from outside the cache (a built-in bundle) into the
// cache under name.
func (d *DiskFS) Import(ctx context.Context, srcPath, name string) error {
	if err := EnsureDir(d.root); err != nil {
		return err
	}
	return CopyFile(ctx, srcPath, d.path(name))
}

// List returns the names of all regular files in the cache directory.
// A missing directory is an empty cache.
func (d *DiskFS) List() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CopyFile copies a file from source to destination.
//
// The destination file is created with mode 0644 if it doesn't exist,
// or truncated if it does. The source file must exist and be readable.
//
// Parameters:
//   - ctx: Context for cancellation, checked before the copy starts and
//     between chunks
//   - src: Source file path (must exist)
//   - dst: Destination file path (will be created/overwritten)
//
// Returns an error if:
//   - Source file cannot be opened
//   - Destination file cannot be created
//   - Copy operation fails or ctx is cancelled
//
// Example:
//
//	err := CopyFile(ctx, "/app/builtin/core.bundle", "/cache/core.bundle.part")
func CopyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, &ctxReader{ctx: ctx, r: sourceFile}); err != nil {
		destFile.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return destFile.Close()
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
