// Package app wires configuration into a ready-to-use asset package.
package app

import (
	"fmt"
	"log/slog"

	"github.com/handiism/assetsync/internal/assets"
	"github.com/handiism/assetsync/internal/cache"
	"github.com/handiism/assetsync/internal/config"
	"github.com/handiism/assetsync/internal/http"
)

// Open builds the package described by settings: a disk cache under the
// package cache root with its record restored, the built-in bundle set and
// a remote manifest source.
func Open(settings *config.Settings, logger *slog.Logger) (*assets.Package, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := cache.New(cache.NewDiskFS(settings.PackageCacheRoot()))
	dropped, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cache: %w", err)
	}
	if dropped > 0 {
		logger.Warn("cache entries missing on disk", "dropped", dropped)
	}

	builtin, err := cache.NewBuiltin(settings.BuiltinRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning built-in bundles: %w", err)
	}

	opts := settings.ToPackageOptions(logger)
	client := http.NewClient(settings.RequestTimeout())
	source := &http.RemoteSource{
		Client:       client,
		MainHost:     opts.MainHost,
		FallbackHost: opts.FallbackHost,
		PackageName:  opts.PackageName,
		Format:       opts.ManifestFormat,
	}

	logger.Debug("package opened",
		"package", opts.PackageName,
		"cache", settings.PackageCacheRoot(),
		"cached", store.Record().Len(),
		"builtin", builtin.Len(),
		"format", opts.ManifestFormat.String())

	return assets.New(opts, source, store, builtin, client), nil
}
