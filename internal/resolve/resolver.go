package resolve

import (
	"strings"

	"github.com/handiism/assetsync/internal/model"
)

// Resolver assigns a LoadMode and URLs to single bundles.
type Resolver struct {
	// MainHost and FallbackHost are URL prefixes without a trailing slash.
	MainHost     string
	FallbackHost string

	// IsCached reports whether a bundle is already in the local cache.
	IsCached func(b *model.Bundle) bool

	// IsBuiltin reports whether a bundle file was shipped with the client.
	IsBuiltin func(fileName string) bool

	// BuiltinURL returns the URL of a shipped bundle file.
	BuiltinURL func(fileName string) string
}

// Resolve picks the acquisition mode for b: cache first, then built-in,
// then remote.
//
// A nil bundle is a programming error and panics; callers only pass bundles
// taken from an activated manifest.
func (r Resolver) Resolve(b *model.Bundle) model.BundleInfo {
	if b == nil {
		panic("resolve: Resolve called with nil bundle")
	}
	if r.IsCached(b) {
		return model.BundleInfo{Bundle: b, Mode: model.LoadFromCache}
	}
	if r.IsBuiltin(b.FileName) {
		return r.UnpackInfo(b)
	}
	return r.DownloadInfo(b)
}

// DownloadInfo returns the remote acquisition info for b.
func (r Resolver) DownloadInfo(b *model.Bundle) model.BundleInfo {
	return model.BundleInfo{
		Bundle:      b,
		Mode:        model.LoadFromRemote,
		MainURL:     r.MainURL(b.FileName),
		FallbackURL: r.FallbackURL(b.FileName),
	}
}

// UnpackInfo returns the built-in acquisition info for b. The built-in file
// URL is used as both main and fallback URL.
func (r Resolver) UnpackInfo(b *model.Bundle) model.BundleInfo {
	u := r.BuiltinURL(b.FileName)
	return model.BundleInfo{
		Bundle:      b,
		Mode:        model.LoadFromBuiltin,
		MainURL:     u,
		FallbackURL: u,
	}
}

// MainURL returns "{MainHost}/{fileName}".
func (r Resolver) MainURL(fileName string) string {
	return joinURL(r.MainHost, fileName)
}

// FallbackURL returns "{FallbackHost}/{fileName}".
func (r Resolver) FallbackURL(fileName string) string {
	return joinURL(r.FallbackHost, fileName)
}

// Infos annotates a work-list. Download lists get remote URLs; unpack lists
// get built-in URLs.
func (r Resolver) Infos(bundles []*model.Bundle, mode model.LoadMode) []model.BundleInfo {
	out := make([]model.BundleInfo, 0, len(bundles))
	for _, b := range bundles {
		switch mode {
		case model.LoadFromBuiltin:
			out = append(out, r.UnpackInfo(b))
		case model.LoadFromRemote:
			out = append(out, r.DownloadInfo(b))
		default:
			out = append(out, r.Resolve(b))
		}
	}
	return out
}

func joinURL(host, fileName string) string {
	return strings.TrimRight(host, "/") + "/" + fileName
}
