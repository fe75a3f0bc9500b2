// Package model defines the bundle graph shared by every assetsync package.
//
// # Bundle
//
// Bundle describes one published file: its stable GUID, file name, content
// hash, size, tags and dependency edges:
//
//	b := &model.Bundle{GUID: "a1", FileName: "core_a1.bundle", Tags: nil}
//	fmt.Println(b.HasAnyTags()) // false: mandatory base content
//
// # Manifest
//
// Manifest is an immutable, versioned snapshot of all bundles plus the asset
// path mappings. NewManifest validates the graph and returns an error
// wrapping ErrManifestIntegrity on any dangling edge:
//
//	m, err := model.NewManifest("main", "v3", true, bundles, assets)
//	deps, err := m.AllDependencies("Assets/Hero.prefab")
//
// # BundleInfo
//
// BundleInfo annotates a bundle with its LoadMode (cache, builtin, remote)
// and the URLs to fetch it from. It is produced by package resolve.
package model
