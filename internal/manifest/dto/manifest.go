package dto

import (
	"fmt"

	"github.com/handiism/assetsync/internal/model"
)

// FileVersion is the manifest schema version this package reads and writes.
const FileVersion = "1"

// Manifest is the serialized form of a package manifest. The same struct is
// used for the JSON, YAML and CBOR encodings.
type Manifest struct {
	FileVersion     string   `json:"file_version" yaml:"file_version" cbor:"file_version"`
	PackageName     string   `json:"package_name" yaml:"package_name" cbor:"package_name"`
	PackageVersion  string   `json:"package_version" yaml:"package_version" cbor:"package_version"`
	LocationToLower bool     `json:"location_to_lower,omitempty" yaml:"location_to_lower,omitempty" cbor:"location_to_lower,omitempty"`
	Bundles         []Bundle `json:"bundles" yaml:"bundles" cbor:"bundles"`
	Assets          []Asset  `json:"assets,omitempty" yaml:"assets,omitempty" cbor:"assets,omitempty"`
}

// ToManifest converts the DTO into a validated model.Manifest.
//
// When locationToLower is true, case folding is forced on regardless of the
// value recorded in the file.
func (m *Manifest) ToManifest(locationToLower bool) (*model.Manifest, error) {
	if m.FileVersion != "" && m.FileVersion != FileVersion {
		return nil, fmt.Errorf("unsupported manifest file version %q", m.FileVersion)
	}
	if m.PackageName == "" {
		return nil, fmt.Errorf("manifest has no package name")
	}
	if m.PackageVersion == "" {
		return nil, fmt.Errorf("manifest has no package version")
	}

	bundles := make([]*model.Bundle, 0, len(m.Bundles))
	for i := range m.Bundles {
		bundles = append(bundles, m.Bundles[i].ToBundle())
	}

	assets := make([]*model.Asset, 0, len(m.Assets))
	for i := range m.Assets {
		assets = append(assets, m.Assets[i].ToAsset())
	}

	return model.NewManifest(m.PackageName, m.PackageVersion, locationToLower || m.LocationToLower, bundles, assets)
}

// FromManifest builds the serialized form of a model.Manifest.
func FromManifest(m *model.Manifest) *Manifest {
	out := &Manifest{
		FileVersion:     FileVersion,
		PackageName:     m.PackageName(),
		PackageVersion:  m.PackageVersion(),
		LocationToLower: m.LocationToLower(),
		Bundles:         make([]Bundle, 0, len(m.Bundles())),
		Assets:          make([]Asset, 0, len(m.Assets())),
	}
	for _, b := range m.Bundles() {
		out.Bundles = append(out.Bundles, FromBundle(b))
	}
	for _, a := range m.Assets() {
		out.Assets = append(out.Assets, FromAsset(a))
	}
	return out
}
