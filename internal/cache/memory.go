package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"
)

// MemoryFS keeps cache files in memory. It stands in for sandboxed storage
// backends and is used by tests.
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryFS returns an empty MemoryFS.
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{files: make(map[string][]byte)}
}

// Exists reports whether name is stored.
func (m *MemoryFS) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok
}

// Open returns a reader over a copy-free snapshot of name.
func (m *MemoryFS) Open(name string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create returns a writer whose content is stored under name on Close.
func (m *MemoryFS) Create(name string) (io.WriteCloser, error) {
	return &memoryFile{fs: m, name: name}, nil
}

// Rename moves from to to.
func (m *MemoryFS) Rename(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[from]
	if !ok {
		return &fs.PathError{Op: "rename", Path: from, Err: fs.ErrNotExist}
	}
	m.files[to] = data
	delete(m.files, from)
	return nil
}

// Remove deletes name.
func (m *MemoryFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

// Import reads srcPath from the host file system into name.
func (m *MemoryFS) Import(ctx context.Context, srcPath, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("importing %s: %w", srcPath, err)
	}
	m.Put(name, data)
	return nil
}

// List returns the stored names in sorted order.
func (m *MemoryFS) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Put stores data under name.
func (m *MemoryFS) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

// Get returns the data stored under name.
func (m *MemoryFS) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	return data, ok
}

type memoryFile struct {
	fs   *MemoryFS
	name string
	buf  bytes.Buffer
}

func (f *memoryFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memoryFile) Close() error {
	f.fs.Put(f.name, f.buf.Bytes())
	return nil
}
