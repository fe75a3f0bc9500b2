package model

import (
	"strings"
)

// Asset maps one loadable asset path to the bundle that contains it.
type Asset struct {
	// Path is the asset path as declared at build time.
	Path string

	// BundleID is the GUID of the main bundle holding the asset.
	BundleID string

	// DependIDs are extra bundle GUIDs the asset needs, beyond the edges
	// already declared on its main bundle.
	DependIDs []string

	// Tags are the asset's labels, used by AssetsByTags.
	Tags []string
}

// Manifest is an immutable, versioned snapshot of every bundle in a package
// together with its asset path mappings.
//
// All lookup tables are built once by NewManifest and owned by the
// Manifest instance, so several manifests (or packages) can coexist without
// sharing mutable state. Nothing mutates a Manifest after construction;
// swapping the active manifest is done by replacing the pointer.
//
// Example:
//
//	m, err := NewManifest("main", "2026.10.19", true, bundles, assets)
//	if err != nil {
//	    return err // errors.Is(err, ErrManifestIntegrity)
//	}
//	main, err := m.MainBundle("Assets/UI/Login.prefab")
type Manifest struct {
	packageName     string
	packageVersion  string
	locationToLower bool

	bundles []*Bundle
	assets  []*Asset

	bundleByID   map[string]*Bundle
	bundleByFile map[string]*Bundle
	assetByPath  map[string]*Asset
}

// NewManifest validates the bundle graph and builds the lookup tables.
//
// Validation rejects:
//   - empty or duplicate bundle GUIDs
//   - duplicate bundle file names
//   - distinct file names that map to the same cache file name
//   - dependency GUIDs that do not resolve to a bundle in this manifest
//   - assets whose main or extra bundles are not declared
//   - duplicate asset paths (after case folding when locationToLower is set)
//
// Every rejection is an *IntegrityError wrapping ErrManifestIntegrity.
func NewManifest(packageName, packageVersion string, locationToLower bool, bundles []*Bundle, assets []*Asset) (*Manifest, error) {
	m := &Manifest{
		packageName:     packageName,
		packageVersion:  packageVersion,
		locationToLower: locationToLower,
		bundles:         bundles,
		assets:          assets,
		bundleByID:      make(map[string]*Bundle, len(bundles)),
		bundleByFile:    make(map[string]*Bundle, len(bundles)),
		assetByPath:     make(map[string]*Asset, len(assets)),
	}

	byCacheName := make(map[string]*Bundle, len(bundles))
	for _, b := range bundles {
		if b == nil || b.GUID == "" {
			return nil, integrityf(packageName, "bundle with empty GUID")
		}
		if _, dup := m.bundleByID[b.GUID]; dup {
			return nil, integrityf(b.GUID, "duplicate bundle GUID")
		}
		if _, dup := m.bundleByFile[b.FileName]; dup {
			return nil, integrityf(b.GUID, "duplicate bundle file name %q", b.FileName)
		}
		cacheName := b.CacheFileName()
		if other, dup := byCacheName[cacheName]; dup {
			return nil, integrityf(b.GUID, "cache file name %q collides with %s", cacheName, other.GUID)
		}
		byCacheName[cacheName] = b
		m.bundleByID[b.GUID] = b
		m.bundleByFile[b.FileName] = b
	}

	for _, b := range bundles {
		for _, dep := range b.DependIDs {
			if _, ok := m.bundleByID[dep]; !ok {
				return nil, integrityf(b.GUID, "dangling dependency %q", dep)
			}
		}
	}

	for _, a := range assets {
		if a == nil || a.Path == "" {
			return nil, integrityf(packageName, "asset with empty path")
		}
		if _, ok := m.bundleByID[a.BundleID]; !ok {
			return nil, integrityf(a.Path, "main bundle %q not declared", a.BundleID)
		}
		for _, dep := range a.DependIDs {
			if _, ok := m.bundleByID[dep]; !ok {
				return nil, integrityf(a.Path, "dangling dependency %q", dep)
			}
		}
		key := m.foldLocation(a.Path)
		if _, dup := m.assetByPath[key]; dup {
			return nil, integrityf(a.Path, "duplicate asset path")
		}
		m.assetByPath[key] = a
	}

	return m, nil
}

// PackageName returns the name of the package the manifest belongs to.
func (m *Manifest) PackageName() string { return m.packageName }

// PackageVersion returns the manifest version string.
func (m *Manifest) PackageVersion() string { return m.packageVersion }

// LocationToLower reports whether asset locations are case-folded.
func (m *Manifest) LocationToLower() bool { return m.locationToLower }

// Bundles returns all bundles in declaration order. The slice must not be modified.
func (m *Manifest) Bundles() []*Bundle { return m.bundles }

// Assets returns all assets in declaration order. The slice must not be modified.
func (m *Manifest) Assets() []*Asset { return m.assets }

// Bundle looks up a bundle by GUID.
func (m *Manifest) Bundle(guid string) (*Bundle, bool) {
	b, ok := m.bundleByID[guid]
	return b, ok
}

// BundleByFileName looks up a bundle by its published file name.
func (m *Manifest) BundleByFileName(fileName string) (*Bundle, bool) {
	b, ok := m.bundleByFile[fileName]
	return b, ok
}

// IncludesBundleFile reports whether a bundle with this file name is declared.
func (m *Manifest) IncludesBundleFile(fileName string) bool {
	_, ok := m.bundleByFile[fileName]
	return ok
}

// Asset looks up an asset by location, honoring case folding.
func (m *Manifest) Asset(location string) (*Asset, bool) {
	a, ok := m.assetByPath[m.foldLocation(location)]
	return a, ok
}

// MappingToAssetPath returns the declared asset path for a location, or an
// integrity error when the manifest does not declare it.
func (m *Manifest) MappingToAssetPath(location string) (string, error) {
	a, ok := m.Asset(location)
	if !ok {
		return "", integrityf(location, "asset not declared")
	}
	return a.Path, nil
}

// TryMappingToAssetPath is MappingToAssetPath returning "" on a miss.
func (m *Manifest) TryMappingToAssetPath(location string) string {
	if a, ok := m.Asset(location); ok {
		return a.Path
	}
	return ""
}

// MainBundle returns the bundle that contains the asset at location.
func (m *Manifest) MainBundle(location string) (*Bundle, error) {
	a, ok := m.Asset(location)
	if !ok {
		return nil, integrityf(location, "asset not declared")
	}
	return m.bundleByID[a.BundleID], nil
}

// AllDependencies returns the dependency closure of the asset at location:
// the asset's own extra dependencies plus every bundle reachable from its main
// bundle through dependency edges. The main bundle itself is excluded. The
// result is deduplicated by GUID in first-occurrence order (depth-first,
// declaration order).
func (m *Manifest) AllDependencies(location string) ([]*Bundle, error) {
	a, ok := m.Asset(location)
	if !ok {
		return nil, integrityf(location, "asset not declared")
	}

	seen := map[string]bool{a.BundleID: true}
	var out []*Bundle

	var visit func(guid string)
	visit = func(guid string) {
		if seen[guid] {
			return
		}
		seen[guid] = true
		b := m.bundleByID[guid]
		out = append(out, b)
		for _, dep := range b.DependIDs {
			visit(dep)
		}
	}

	for _, dep := range m.bundleByID[a.BundleID].DependIDs {
		visit(dep)
	}
	for _, dep := range a.DependIDs {
		visit(dep)
	}
	return out, nil
}

// AssetsByTags returns every asset carrying at least one of the tags, in
// declaration order.
func (m *Manifest) AssetsByTags(tags []string) []*Asset {
	var out []*Asset
	for _, a := range m.assets {
		if hasAny(a.Tags, tags) {
			out = append(out, a)
		}
	}
	return out
}

func (m *Manifest) foldLocation(location string) string {
	if m.locationToLower {
		return strings.ToLower(location)
	}
	return location
}

func hasAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
