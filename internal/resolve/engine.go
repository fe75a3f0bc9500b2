package resolve

import (
	"errors"
	"fmt"

	"github.com/handiism/assetsync/internal/model"
)

// Engine computes deduplicated, declaration-ordered work-lists.
//
// Both predicates must be side-effect free; they are called once per
// candidate bundle.
type Engine struct {
	// IsCached reports whether a bundle is already in the local cache.
	IsCached func(b *model.Bundle) bool

	// IsBuiltin reports whether a bundle file was shipped with the client.
	IsBuiltin func(fileName string) bool
}

// DownloadList returns the bundles selected by c that are neither cached nor
// built-in.
//
// For ByAssetPaths, every path the manifest does not declare is reported as
// a *SelectionError (joined with errors.Join) while the valid paths are
// still resolved; the returned list is then non-nil alongside the error.
func (e Engine) DownloadList(m *model.Manifest, c Criterion) ([]*model.Bundle, error) {
	candidates, err := e.candidates(m, c)

	var out []*model.Bundle
	for _, b := range candidates {
		if e.IsCached(b) || e.IsBuiltin(b.FileName) {
			continue
		}
		out = append(out, b)
	}
	return out, err
}

// UnpackList returns the built-in bundles selected by c that have not been
// copied into the cache yet. Unlike DownloadList, a tag filter matches only
// bundles carrying one of the tags; untagged built-in bundles are unpacked
// by All alone.
//
// ByAssetPaths is not supported for unpacking.
func (e Engine) UnpackList(m *model.Manifest, c Criterion) ([]*model.Bundle, error) {
	var match func(b *model.Bundle) bool
	switch c.kind {
	case KindAll:
		match = func(*model.Bundle) bool { return true }
	case KindTags:
		match = func(b *model.Bundle) bool { return b.HasTag(c.values) }
	default:
		return nil, &SelectionError{Input: c.String(), Err: fmt.Errorf("unpack supports all or tags only")}
	}

	var out []*model.Bundle
	for _, b := range m.Bundles() {
		if e.IsCached(b) || !e.IsBuiltin(b.FileName) {
			continue
		}
		if match(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// candidates applies the criterion's inclusion rule, before local-state
// filtering.
func (e Engine) candidates(m *model.Manifest, c Criterion) ([]*model.Bundle, error) {
	switch c.kind {
	case KindAll:
		return m.Bundles(), nil

	case KindTags:
		var out []*model.Bundle
		for _, b := range m.Bundles() {
			if !b.HasAnyTags() || b.HasTag(c.values) {
				out = append(out, b)
			}
		}
		return out, nil

	case KindAssetPaths:
		return closure(m, c.values)

	default:
		return nil, &SelectionError{Input: c.String(), Err: fmt.Errorf("unknown criterion")}
	}
}

// closure collects the main bundle and full dependency set of every path.
// The result is deduplicated and returned in manifest declaration order.
func closure(m *model.Manifest, paths []string) ([]*model.Bundle, error) {
	selected := make(map[string]bool)
	var errs []error

	for _, p := range paths {
		main, err := m.MainBundle(p)
		if err != nil {
			errs = append(errs, &SelectionError{Input: p, Err: err})
			continue
		}
		deps, err := m.AllDependencies(p)
		if err != nil {
			errs = append(errs, &SelectionError{Input: p, Err: err})
			continue
		}
		selected[main.GUID] = true
		for _, d := range deps {
			selected[d.GUID] = true
		}
	}

	var out []*model.Bundle
	for _, b := range m.Bundles() {
		if selected[b.GUID] {
			out = append(out, b)
		}
	}
	return out, errors.Join(errs...)
}
