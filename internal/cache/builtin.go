package cache

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// Builtin answers whether a bundle file was shipped with the client.
//
// The built-in (streaming) directory is read-only and scanned once at
// construction; lookups afterwards are map reads and have no side effects.
type Builtin struct {
	root  string
	names map[string]struct{}
}

// NewBuiltin scans root for shipped bundle files. An empty root or a
// missing directory yields an empty set.
func NewBuiltin(root string) (*Builtin, error) {
	b := &Builtin{root: root, names: make(map[string]struct{})}
	if root == "" {
		return b, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return b, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			b.names[e.Name()] = struct{}{}
		}
	}
	return b, nil
}

// NewBuiltinFromNames builds a Builtin from a known list of file names,
// for platforms where the shipped content cannot be listed.
func NewBuiltinFromNames(root string, names []string) *Builtin {
	b := &Builtin{root: root, names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		b.names[name] = struct{}{}
	}
	return b
}

// IsBuiltin reports whether fileName was shipped with the client.
func (b *Builtin) IsBuiltin(fileName string) bool {
	_, ok := b.names[fileName]
	return ok
}

// Path returns the host path of a shipped file.
func (b *Builtin) Path(fileName string) string {
	return filepath.Join(b.root, fileName)
}

// URL returns the file:// URL of a shipped file.
func (b *Builtin) URL(fileName string) string {
	p := b.Path(fileName)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

// Len returns the number of shipped files.
func (b *Builtin) Len() int {
	return len(b.names)
}
