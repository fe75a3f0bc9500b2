package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelection marks selection input that the active manifest cannot
// satisfy, such as an undeclared asset path.
var ErrInvalidSelection = errors.New("invalid selection input")

// SelectionError names one offending selection input.
type SelectionError struct {
	Input string
	Err   error
}

func (e *SelectionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", ErrInvalidSelection.Error(), e.Input)
	}
	return fmt.Sprintf("%s: %q: %v", ErrInvalidSelection.Error(), e.Input, e.Err)
}

// Unwrap returns the kind sentinel and the underlying cause, if any.
func (e *SelectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidSelection}
	}
	return []error{ErrInvalidSelection, e.Err}
}

// Kind is the selection strategy of a Criterion.
type Kind int

const (
	// KindAll selects every bundle.
	KindAll Kind = iota

	// KindTags selects untagged bundles plus bundles with a matching tag.
	KindTags

	// KindAssetPaths selects the dependency closure of a set of assets.
	KindAssetPaths
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAll:
		return "all"
	case KindTags:
		return "tags"
	case KindAssetPaths:
		return "paths"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Criterion selects which bundles of a manifest a work-list covers.
// Build one with All, ByTags or ByAssetPaths.
type Criterion struct {
	kind   Kind
	values []string
}

// All selects every bundle of the manifest.
func All() Criterion {
	return Criterion{kind: KindAll}
}

// ByTags selects every untagged bundle plus every bundle carrying at least
// one of tags. ByTags() with no tags selects exactly the untagged bundles.
func ByTags(tags ...string) Criterion {
	return Criterion{kind: KindTags, values: tags}
}

// ByAssetPaths selects the main bundles of the given asset locations and
// their transitive dependencies.
func ByAssetPaths(paths ...string) Criterion {
	return Criterion{kind: KindAssetPaths, values: paths}
}

// Kind returns the selection strategy.
func (c Criterion) Kind() Kind { return c.kind }

// Values returns the tags or paths of the criterion.
func (c Criterion) Values() []string { return c.values }

// String renders the criterion for log messages.
func (c Criterion) String() string {
	if c.kind == KindAll {
		return "all"
	}
	return c.kind.String() + "[" + strings.Join(c.values, ",") + "]"
}
