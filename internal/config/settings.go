package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/handiism/assetsync/internal/assets"
	"github.com/handiism/assetsync/internal/download"
	"github.com/handiism/assetsync/internal/manifest"
)

// Settings holds all configuration options.
type Settings struct {
	// Package settings
	PackageName        string `json:"package_name" yaml:"package_name"`
	DefaultHostServer  string `json:"default_host_server" yaml:"default_host_server"`
	FallbackHostServer string `json:"fallback_host_server" yaml:"fallback_host_server"`
	ManifestFormat     string `json:"manifest_format" yaml:"manifest_format"` // json, yaml, cbor
	LocationToLower    bool   `json:"location_to_lower" yaml:"location_to_lower"`
	AppendTimeTicks    bool   `json:"append_time_ticks" yaml:"append_time_ticks"`
	AutoSaveManifest   bool   `json:"auto_save_manifest" yaml:"auto_save_manifest"`

	// Storage
	CacheRoot   string `json:"cache_root" yaml:"cache_root"`
	BuiltinRoot string `json:"builtin_root" yaml:"builtin_root"`

	// Download settings
	MaxConcurrentDownloads int     `json:"max_concurrent_downloads" yaml:"max_concurrent_downloads"`
	DownloadMaxRetries     int     `json:"download_max_retries" yaml:"download_max_retries"`
	DownloadRetryCooldown  float64 `json:"download_retry_cooldown" yaml:"download_retry_cooldown"` // seconds
	DownloadRetryExponent  float64 `json:"download_retry_exponent" yaml:"download_retry_exponent"`
	BatchTimeoutSeconds    int     `json:"batch_timeout_seconds" yaml:"batch_timeout_seconds"`
	RequestTimeoutSeconds  int     `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return &Settings{
		PackageName:      "main",
		ManifestFormat:   "json",
		AppendTimeTicks:  true,
		AutoSaveManifest: true,

		CacheRoot: filepath.Join(cacheDir, "assetsync"),

		MaxConcurrentDownloads: 10,
		DownloadMaxRetries:     3,
		DownloadRetryCooldown:  0.2,
		DownloadRetryExponent:  4.0,
		BatchTimeoutSeconds:    600,
		RequestTimeoutSeconds:  60,
	}
}

// Load reads settings from a JSON (comments allowed) or YAML file, chosen
// by extension. A missing file yields the defaults; fields absent from the
// file keep their default values.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isYAML(path) {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(jsonc.ToJSON(data), settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON or YAML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports every setting that cannot drive a batch.
func (s *Settings) Validate() error {
	var errs []error
	if s.PackageName == "" {
		errs = append(errs, errors.New("package_name is required"))
	}
	if s.MaxConcurrentDownloads <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_downloads must be positive, got %d", s.MaxConcurrentDownloads))
	}
	if s.DownloadMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("download_max_retries must not be negative, got %d", s.DownloadMaxRetries))
	}
	if s.BatchTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("batch_timeout_seconds must be positive, got %d", s.BatchTimeoutSeconds))
	}
	if s.DownloadRetryCooldown < 0 {
		errs = append(errs, fmt.Errorf("download_retry_cooldown must not be negative, got %g", s.DownloadRetryCooldown))
	}
	if s.DownloadRetryExponent <= 0 {
		errs = append(errs, fmt.Errorf("download_retry_exponent must be positive, got %g", s.DownloadRetryExponent))
	}
	if _, err := manifest.ParseFormat(s.ManifestFormat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ToBatchOptions converts settings to download.Options.
func (s *Settings) ToBatchOptions(logger *slog.Logger) download.Options {
	return download.Options{
		MaxConcurrency: s.MaxConcurrentDownloads,
		MaxRetries:     s.DownloadMaxRetries,
		Timeout:        time.Duration(s.BatchTimeoutSeconds) * time.Second,
		RetryCooldown:  time.Duration(s.DownloadRetryCooldown * float64(time.Second)),
		RetryExponent:  s.DownloadRetryExponent,
		Logger:         logger,
	}
}

// ToPackageOptions converts settings to assets.Options. An unknown manifest
// format falls back to JSON; Validate reports it.
func (s *Settings) ToPackageOptions(logger *slog.Logger) assets.Options {
	format, err := manifest.ParseFormat(s.ManifestFormat)
	if err != nil {
		format = manifest.FormatJSON
	}
	return assets.Options{
		PackageName:      s.PackageName,
		MainHost:         s.DefaultHostServer,
		FallbackHost:     s.fallbackHost(),
		LocationToLower:  s.LocationToLower,
		ManifestFormat:   format,
		AppendTimeTicks:  s.AppendTimeTicks,
		AutoSaveManifest: s.AutoSaveManifest,
		Batch:            s.ToBatchOptions(logger),
		Logger:           logger,
	}
}

// RequestTimeout returns the per-request HTTP timeout.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// PackageCacheRoot returns the cache directory of the configured package.
func (s *Settings) PackageCacheRoot() string {
	return filepath.Join(s.CacheRoot, s.PackageName)
}

// fallbackHost defaults to the main host.
func (s *Settings) fallbackHost() string {
	if s.FallbackHostServer != "" {
		return s.FallbackHostServer
	}
	return s.DefaultHostServer
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
