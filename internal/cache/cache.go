package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/handiism/assetsync/internal/content"
	"github.com/handiism/assetsync/internal/model"
)

// ErrVerify marks a materialized file whose size or hash does not match
// its bundle descriptor.
var ErrVerify = errors.New("bundle verification failed")

const (
	// IndexFileName holds the persisted Record.
	IndexFileName = ".index.cbor"

	tempSuffix   = ".part"
	decodeSuffix = ".decoding"
	indexVersion = 1
)

// index is the persisted form of a Record.
type index struct {
	Version int      `cbor:"version"`
	Files   []string `cbor:"files"`
}

// Cache is the local cache of one package: a storage backend plus the record
// of which bundles it holds.
//
// Bundles are written in two steps. A transport or import writes the
// published bytes to a temporary name; Install then verifies them against
// the descriptor, decodes any compression and moves the result into place.
// Commit adds the bundle to the Record; only committed bundles count as
// cached.
type Cache struct {
	fs     FileSystem
	record *Record

	// indexMu serializes writers of the index temp file.
	indexMu sync.Mutex
}

// New returns a Cache over fsys with an empty Record. Call Load to restore
// the persisted record.
func New(fsys FileSystem) *Cache {
	return &Cache{fs: fsys, record: NewRecord()}
}

// FS returns the storage backend.
func (c *Cache) FS() FileSystem { return c.fs }

// Record returns the set of committed cache entries.
func (c *Cache) Record() *Record { return c.record }

// IsCached reports whether b has been committed to the cache.
func (c *Cache) IsCached(b *model.Bundle) bool {
	return c.record.Contains(b.CacheFileName())
}

// Commit records b as present. It returns false when b was already recorded.
func (c *Cache) Commit(b *model.Bundle) bool {
	return c.record.Add(b.CacheFileName())
}

// TempName is the name a bundle is written under before Install.
func TempName(b *model.Bundle) string {
	return b.CacheFileName() + tempSuffix
}

// Create opens the temporary file for b.
func (c *Cache) Create(b *model.Bundle) (io.WriteCloser, error) {
	return c.fs.Create(TempName(b))
}

// Import copies the built-in file at srcPath to the temporary file for b.
func (c *Cache) Import(ctx context.Context, b *model.Bundle, srcPath string) error {
	return c.fs.Import(ctx, srcPath, TempName(b))
}

// Discard removes any temporary files left for b.
func (c *Cache) Discard(b *model.Bundle) {
	_ = c.fs.Remove(TempName(b))
	_ = c.fs.Remove(b.CacheFileName() + decodeSuffix)
}

// Install verifies the temporary file for b and moves the decoded content
// to its cache name. It does not commit b.
//
// Returns an error wrapping ErrVerify if the size or hash differs from the
// descriptor; the temporary file is removed in that case.
func (c *Cache) Install(ctx context.Context, b *model.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := TempName(b)
	if err := c.verify(b, tmp); err != nil {
		c.Discard(b)
		return err
	}

	compression, err := content.ParseCompression(b.Compression)
	if err != nil {
		c.Discard(b)
		return fmt.Errorf("bundle %s: %w", b.GUID, err)
	}

	final := b.CacheFileName()
	if compression == content.CompressionNone {
		return c.fs.Rename(tmp, final)
	}

	if err := c.decode(ctx, compression, tmp, final+decodeSuffix); err != nil {
		c.Discard(b)
		return fmt.Errorf("bundle %s: %w", b.GUID, err)
	}
	if err := c.fs.Rename(final+decodeSuffix, final); err != nil {
		return err
	}
	return c.fs.Remove(tmp)
}

func (c *Cache) verify(b *model.Bundle, name string) error {
	r, err := c.fs.Open(name)
	if err != nil {
		return err
	}
	defer r.Close()

	digest, n, err := content.HashReader(r)
	if err != nil {
		return err
	}
	if b.Size > 0 && n != b.Size {
		return fmt.Errorf("%w: bundle %s: size %d, want %d", ErrVerify, b.GUID, n, b.Size)
	}
	if b.Hash != "" && digest != b.Hash {
		return fmt.Errorf("%w: bundle %s: hash %s, want %s", ErrVerify, b.GUID, digest, b.Hash)
	}
	return nil
}

func (c *Cache) decode(ctx context.Context, compression content.Compression, src, dst string) error {
	r, err := c.fs.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	dec, err := content.NewDecoder(compression, r)
	if err != nil {
		return err
	}
	defer dec.Close()

	w, err := c.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, &ctxReader{ctx: ctx, r: dec}); err != nil {
		w.Close()
		return fmt.Errorf("decoding %s: %w", compression, err)
	}
	return w.Close()
}

// Load restores the Record from the persisted index, keeping only entries
// whose files still exist. Without an index, the backend is scanned and every
// finished file is recorded. It returns the number of entries dropped.
func (c *Cache) Load() (int, error) {
	names, err := c.readIndex()
	if errors.Is(err, fs.ErrNotExist) {
		names, err = c.scan()
	}
	if err != nil {
		return 0, err
	}

	dropped := 0
	for _, name := range names {
		if c.fs.Exists(name) {
			c.record.Add(name)
		} else {
			dropped++
		}
	}
	return dropped, nil
}

// SaveIndex persists the Record. Concurrent calls are serialized, and each
// writes the Record as it is when the call gets its turn.
func (c *Cache) SaveIndex() error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	data, err := cbor.Marshal(index{Version: indexVersion, Files: c.record.Names()})
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}
	w, err := c.fs.Create(IndexFileName + tempSuffix)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.fs.Rename(IndexFileName+tempSuffix, IndexFileName)
}

func (c *Cache) readIndex() ([]string, error) {
	if !c.fs.Exists(IndexFileName) {
		return nil, fs.ErrNotExist
	}
	r, err := c.fs.Open(IndexFileName)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var idx index
	if err := cbor.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decoding cache index: %w", err)
	}
	if idx.Version != indexVersion {
		return nil, fmt.Errorf("unsupported cache index version %d", idx.Version)
	}
	return idx.Files, nil
}

func (c *Cache) scan() ([]string, error) {
	all, err := c.fs.List()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range all {
		if isBookkeeping(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// ClearAll removes every recorded bundle file and empties the Record.
// It returns the number of files removed.
func (c *Cache) ClearAll(ctx context.Context) (int, error) {
	removed := 0
	for _, name := range c.record.Names() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := c.fs.Remove(name); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		c.record.Remove(name)
		removed++
	}
	return removed, c.SaveIndex()
}

// ClearUnused removes recorded files that no bundle in m refers to.
// It returns the number of files removed.
func (c *Cache) ClearUnused(ctx context.Context, m *model.Manifest) (int, error) {
	used := make(map[string]struct{}, len(m.Bundles()))
	for _, b := range m.Bundles() {
		used[b.CacheFileName()] = struct{}{}
	}

	removed := 0
	for _, name := range c.record.Names() {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, ok := used[name]; ok {
			continue
		}
		if err := c.fs.Remove(name); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		c.record.Remove(name)
		removed++
	}
	return removed, c.SaveIndex()
}

// Missing returns the bundles of m that are recorded but whose files are
// gone from the backend, and drops them from the Record.
func (c *Cache) Missing(m *model.Manifest) []*model.Bundle {
	var missing []*model.Bundle
	for _, b := range m.Bundles() {
		name := b.CacheFileName()
		if c.record.Contains(name) && !c.fs.Exists(name) {
			c.record.Remove(name)
			missing = append(missing, b)
		}
	}
	return missing
}

func isBookkeeping(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, tempSuffix) ||
		strings.HasSuffix(name, decodeSuffix)
}
