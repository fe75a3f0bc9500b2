package model

import (
	"path"
	"regexp"
	"strings"
)

// Bundle describes one packaged unit of binary content in a manifest.
//
// Bundle contains everything needed to locate, fetch and verify a bundle:
//   - GUID as the stable identity used for dependency edges
//   - FileName as the name on the remote host and in the local cache
//   - Hash and Size for verification after a download or unpack
//   - Tags for selecting optional (DLC) content
//   - DependIDs listing the bundles this one needs at load time
//
// A Bundle is immutable once it belongs to a Manifest.
//
// Example:
//
//	b := &Bundle{
//	    GUID:     "7f3a",
//	    FileName: "ui_common_7f3a.bundle",
//	    Hash:     "a1b2...",
//	    Size:     4096,
//	    Tags:     []string{"dlc"},
//	}
type Bundle struct {
	// GUID is the stable identity of the bundle.
	GUID string

	// FileName is the published file name. It is used as the last path
	// segment of remote URLs and as the local cache file name.
	FileName string

	// Hash is the lowercase hex BLAKE3 digest of the published file.
	// Empty disables hash verification.
	Hash string

	// Size is the published file size in bytes. Zero disables size verification.
	Size int64

	// Compression names the encoding of the published file ("", "lz4", "zstd").
	// The local cache always holds the decoded content.
	Compression string

	// Tags are free-form labels. A bundle without tags is mandatory content.
	Tags []string

	// DependIDs are the GUIDs of bundles this bundle depends on, in declaration order.
	DependIDs []string
}

// HasAnyTags reports whether the bundle carries at least one tag.
func (b *Bundle) HasAnyTags() bool {
	return len(b.Tags) > 0
}

// HasTag reports whether the bundle carries any of the given tags.
func (b *Bundle) HasTag(tags []string) bool {
	return hasAny(b.Tags, tags)
}

// CacheFileName returns the file name under which the bundle is stored in
// the local cache. It is derived only from FileName, so the same bundle
// always maps to the same cache entry.
func (b *Bundle) CacheFileName() string {
	return sanitizeFileName(path.Base(b.FileName))
}

// sanitizeFileName removes or replaces characters that are invalid in file names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("ui:common.bundle") // Returns "ui_common.bundle"
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots = regexp.MustCompile(`\.+$`)
	whitespace   = regexp.MustCompile(`\s+`)
)
