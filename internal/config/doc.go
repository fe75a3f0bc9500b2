// Package config provides configuration management for assetsync.
//
// This package handles:
//   - Loading and saving settings from JSON (with comments) or YAML files
//   - Default configuration values
//   - Conversion to download.Options and assets.Options for other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Caches under the user cache directory
//	// Ten concurrent downloads, three retries
//	// Manifest snapshots saved on activation
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/assetsync.jsonc")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.DefaultHostServer = "https://cdn.example.com/main"
//	err := settings.Save("/path/to/assetsync.yaml")
package config
