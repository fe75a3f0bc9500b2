package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/handiism/assetsync/internal/content"
	"github.com/handiism/assetsync/internal/model"
)

func writeTemp(t *testing.T, c *Cache, b *model.Bundle, data []byte) {
	t.Helper()
	w, err := c.Create(b)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func readAll(t *testing.T, fsys FileSystem, name string) []byte {
	t.Helper()
	r, err := fsys.Open(name)
	if err != nil {
		t.Fatalf("Open(%s): %v", name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll(%s): %v", name, err)
	}
	return data
}

func backends(t *testing.T) map[string]FileSystem {
	return map[string]FileSystem{
		"memory": NewMemoryFS(),
		"disk":   NewDiskFS(filepath.Join(t.TempDir(), "cache")),
	}
}

func TestCache_InstallAndCommit(t *testing.T) {
	payload := bytes.Repeat([]byte("mesh "), 200)

	for name, fsys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := New(fsys)
			b := &model.Bundle{
				GUID:     "a",
				FileName: "a.bundle",
				Hash:     content.Hash(payload),
				Size:     int64(len(payload)),
			}

			writeTemp(t, c, b, payload)
			if c.IsCached(b) {
				t.Fatal("bundle is cached before Commit")
			}
			if err := c.Install(context.Background(), b); err != nil {
				t.Fatalf("Install: %v", err)
			}
			if !c.Commit(b) {
				t.Error("first Commit returned false")
			}
			if c.Commit(b) {
				t.Error("second Commit returned true")
			}
			if !c.IsCached(b) {
				t.Error("bundle not cached after Commit")
			}
			if fsys.Exists(TempName(b)) {
				t.Error("temporary file left behind")
			}
			if got := readAll(t, fsys, b.CacheFileName()); !bytes.Equal(got, payload) {
				t.Error("installed content differs")
			}
		})
	}
}

func TestCache_InstallCompressed(t *testing.T) {
	payload := bytes.Repeat([]byte("audio-clip "), 300)

	for _, compression := range []content.Compression{content.CompressionLZ4, content.CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			packed, err := content.Compress(compression, payload)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}

			fsys := NewMemoryFS()
			c := New(fsys)
			b := &model.Bundle{
				GUID:        "z",
				FileName:    "z.bundle",
				Hash:        content.Hash(packed),
				Size:        int64(len(packed)),
				Compression: compression.String(),
			}

			writeTemp(t, c, b, packed)
			if err := c.Install(context.Background(), b); err != nil {
				t.Fatalf("Install: %v", err)
			}
			if got, _ := fsys.Get(b.CacheFileName()); !bytes.Equal(got, payload) {
				t.Error("cache does not hold decoded content")
			}
			if fsys.Exists(TempName(b)) {
				t.Error("temporary file left behind")
			}
		})
	}
}

func TestCache_InstallVerifyFailure(t *testing.T) {
	tests := []struct {
		name   string
		bundle *model.Bundle
	}{
		{
			name:   "size mismatch",
			bundle: &model.Bundle{GUID: "a", FileName: "a.bundle", Size: 99},
		},
		{
			name:   "hash mismatch",
			bundle: &model.Bundle{GUID: "a", FileName: "a.bundle", Hash: content.Hash([]byte("other"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := NewMemoryFS()
			c := New(fsys)
			writeTemp(t, c, tt.bundle, []byte("payload"))

			err := c.Install(context.Background(), tt.bundle)
			if !errors.Is(err, ErrVerify) {
				t.Fatalf("Install error = %v, want ErrVerify", err)
			}
			if !strings.Contains(err.Error(), "a") {
				t.Errorf("error %q does not name the bundle", err)
			}
			if fsys.Exists(TempName(tt.bundle)) || fsys.Exists(tt.bundle.CacheFileName()) {
				t.Error("failed install left files behind")
			}
		})
	}
}

func TestCache_LoadFromIndex(t *testing.T) {
	fsys := NewMemoryFS()
	c := New(fsys)
	a := &model.Bundle{GUID: "a", FileName: "a.bundle"}
	b := &model.Bundle{GUID: "b", FileName: "b.bundle"}

	for _, bundle := range []*model.Bundle{a, b} {
		writeTemp(t, c, bundle, []byte(bundle.GUID))
		if err := c.Install(context.Background(), bundle); err != nil {
			t.Fatalf("Install: %v", err)
		}
		c.Commit(bundle)
	}
	if err := c.SaveIndex(); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}

	// b disappears behind the cache's back.
	_ = fsys.Remove(b.CacheFileName())

	restored := New(fsys)
	dropped, err := restored.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dropped != 1 {
		t.Errorf("Load dropped %d entries, want 1", dropped)
	}
	if !restored.IsCached(a) || restored.IsCached(b) {
		t.Errorf("restored record = %v", restored.Record().Names())
	}
}

func TestCache_ConcurrentSaveIndex(t *testing.T) {
	for name, fsys := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := New(fsys)
			const n = 32

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				bundle := &model.Bundle{GUID: fmt.Sprintf("b%d", i), FileName: fmt.Sprintf("b%d.bundle", i)}
				writeTemp(t, c, bundle, []byte(bundle.GUID))
				if err := c.Install(context.Background(), bundle); err != nil {
					t.Fatalf("Install: %v", err)
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					c.Commit(bundle)
					errs <- c.SaveIndex()
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Errorf("SaveIndex: %v", err)
				}
			}

			restored := New(fsys)
			dropped, err := restored.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if dropped != 0 || restored.Record().Len() != n {
				t.Errorf("restored %d entries, dropped %d, want %d and 0", restored.Record().Len(), dropped, n)
			}
		})
	}
}

func TestCache_LoadByScan(t *testing.T) {
	fsys := NewMemoryFS()
	fsys.Put("a.bundle", []byte("a"))
	fsys.Put("b.bundle.part", []byte("partial"))
	fsys.Put(".manifest_main.zst", []byte("snapshot"))

	c := New(fsys)
	if _, err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Record().Names(); len(got) != 1 || got[0] != "a.bundle" {
		t.Errorf("scanned record = %v, want [a.bundle]", got)
	}
}

func TestCache_Clear(t *testing.T) {
	bundles := []*model.Bundle{
		{GUID: "a", FileName: "a.bundle"},
		{GUID: "b", FileName: "b.bundle"},
		{GUID: "old", FileName: "old.bundle"},
	}
	m, err := model.NewManifest("main", "v2", false, bundles[:2], nil)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}

	fsys := NewMemoryFS()
	c := New(fsys)
	for _, b := range bundles {
		fsys.Put(b.CacheFileName(), []byte(b.GUID))
		c.Commit(b)
	}

	removed, err := c.ClearUnused(context.Background(), m)
	if err != nil {
		t.Fatalf("ClearUnused: %v", err)
	}
	if removed != 1 || fsys.Exists("old.bundle") || c.IsCached(bundles[2]) {
		t.Errorf("ClearUnused removed %d, record %v", removed, c.Record().Names())
	}

	removed, err = c.ClearAll(context.Background())
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if removed != 2 || c.Record().Len() != 0 {
		t.Errorf("ClearAll removed %d, record %v", removed, c.Record().Names())
	}
	if !fsys.Exists(IndexFileName) {
		t.Error("clear did not persist the index")
	}
}

func TestCache_Missing(t *testing.T) {
	a := &model.Bundle{GUID: "a", FileName: "a.bundle"}
	b := &model.Bundle{GUID: "b", FileName: "b.bundle"}
	m, err := model.NewManifest("main", "v1", false, []*model.Bundle{a, b}, nil)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}

	fsys := NewMemoryFS()
	c := New(fsys)
	fsys.Put("a.bundle", []byte("a"))
	c.Commit(a)
	c.Commit(b)

	missing := c.Missing(m)
	if len(missing) != 1 || missing[0].GUID != "b" {
		t.Fatalf("Missing() = %v", missing)
	}
	if c.IsCached(b) {
		t.Error("missing bundle still recorded")
	}
}

func TestBuiltin(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "core.bundle"), []byte("core"), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := NewBuiltin(root)
	if err != nil {
		t.Fatalf("NewBuiltin: %v", err)
	}
	if !b.IsBuiltin("core.bundle") || b.IsBuiltin("dlc.bundle") {
		t.Error("IsBuiltin returned wrong answers")
	}
	if !strings.HasPrefix(b.URL("core.bundle"), "file://") {
		t.Errorf("URL() = %q, want file:// prefix", b.URL("core.bundle"))
	}

	empty, err := NewBuiltin(filepath.Join(root, "missing"))
	if err != nil {
		t.Fatalf("NewBuiltin(missing): %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("missing root has %d files", empty.Len())
	}
}

func TestDiskFS_Import(t *testing.T) {
	src := filepath.Join(t.TempDir(), "core.bundle")
	if err := os.WriteFile(src, []byte("core"), 0644); err != nil {
		t.Fatal(err)
	}

	disk := NewDiskFS(filepath.Join(t.TempDir(), "nested", "cache"))
	if err := disk.Import(context.Background(), src, "core.bundle.part"); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := readAll(t, disk, "core.bundle.part"); string(got) != "core" {
		t.Errorf("imported content = %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := disk.Import(ctx, src, "again.part"); !errors.Is(err, context.Canceled) {
		t.Errorf("Import with cancelled ctx error = %v", err)
	}
}
