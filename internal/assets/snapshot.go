package assets

import (
	"context"
	"fmt"
	"io"

	"github.com/handiism/assetsync/internal/content"
	"github.com/handiism/assetsync/internal/manifest"
	"github.com/handiism/assetsync/internal/model"
)

// SnapshotFileName is the cache file holding the last activated manifest
// of a package. The leading dot keeps it out of cache scans.
func SnapshotFileName(packageName string) string {
	return ".manifest_" + packageName + ".zst"
}

// saveSnapshot writes m as zstd-compressed CBOR.
func (p *Package) saveSnapshot(m *model.Manifest) error {
	data, err := manifest.Encode(m, manifest.FormatCBOR)
	if err != nil {
		return fmt.Errorf("encoding manifest snapshot: %w", err)
	}
	data, err = content.Compress(content.CompressionZstd, data)
	if err != nil {
		return fmt.Errorf("compressing manifest snapshot: %w", err)
	}

	fsys := p.cache.FS()
	name := SnapshotFileName(p.opts.PackageName)
	w, err := fsys.Create(name + ".part")
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
	return fsys.Rename(name+".part", name)
}

// LoadLocalManifest restores and activates the last manifest saved to the
// cache. It does not contact the manifest source.
func (p *Package) LoadLocalManifest(ctx context.Context) (*model.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := p.cache.FS().Open(SnapshotFileName(p.opts.PackageName))
	if err != nil {
		return nil, p.stepError(ErrActivateManifest, fmt.Errorf("no local manifest: %w", err))
	}
	defer r.Close()

	dec, err := content.NewDecoder(content.CompressionZstd, r)
	if err != nil {
		return nil, p.stepError(ErrActivateManifest, err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, p.stepError(ErrActivateManifest, fmt.Errorf("reading local manifest: %w", err))
	}
	m, err := manifest.Decode(data, manifest.FormatCBOR, p.opts.LocationToLower)
	if err != nil {
		return nil, p.stepError(ErrActivateManifest, err)
	}
	if m.PackageName() != p.opts.PackageName {
		return nil, p.stepError(ErrActivateManifest, fmt.Errorf("local manifest belongs to package %s", m.PackageName()))
	}

	p.active.Store(m)
	p.setState(StateActive)
	p.log.Info("local manifest restored", "version", m.PackageVersion())
	return m, nil
}
