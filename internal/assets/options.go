package assets

import (
	"log/slog"

	"github.com/handiism/assetsync/internal/download"
	"github.com/handiism/assetsync/internal/manifest"
)

// Options configures one Package.
type Options struct {
	PackageName  string
	MainHost     string
	FallbackHost string

	// LocationToLower folds asset locations to lower case when decoding
	// manifests.
	LocationToLower bool

	// ManifestFormat is the encoding of remote manifest files.
	ManifestFormat manifest.Format

	// AppendTimeTicks adds an anti-cache query parameter to version requests.
	AppendTimeTicks bool

	// AutoSaveManifest writes a snapshot of every activated manifest to the
	// cache so that LoadLocalManifest can restore it offline.
	AutoSaveManifest bool

	// Batch is the policy for batches created by the package.
	Batch download.Options

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
