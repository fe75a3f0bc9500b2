// Package manifest decodes and encodes package manifests and version files.
//
// The manifest source (a CDN, a local directory) only hands over raw bytes;
// this package turns them into a validated model.Manifest. Three encodings
// share one wire schema (package dto):
//
//   - JSON, the default
//   - YAML, for hand-written manifests
//   - CBOR, compact and deterministic
//
// # Decoding
//
//	m, err := manifest.Decode(data, manifest.FormatCBOR, false)
//	switch {
//	case errors.Is(err, manifest.ErrParse):
//	    // bytes are corrupt or of an unknown schema version
//	case errors.Is(err, model.ErrManifestIntegrity):
//	    // bytes are fine but the bundle graph is not
//	}
//
// # Versions
//
// The latest version of a package is published as a one-line text file
// named by VersionFileName; ParseVersion validates its contents. The
// manifest for a version is named by ManifestFileName.
package manifest
