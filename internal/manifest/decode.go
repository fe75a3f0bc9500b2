package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/handiism/assetsync/internal/manifest/dto"
	"github.com/handiism/assetsync/internal/model"
)

// ErrParse marks manifest or version bytes that could not be decoded.
var ErrParse = errors.New("manifest parse failure")

// ParseError describes a decoding failure. Source is the manifest format
// name, or "version" for version files.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s): %v", ErrParse.Error(), e.Source, e.Err)
}

// Unwrap returns both the kind sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// Format is a manifest serialization format.
type Format int

const (
	// FormatJSON is the human-readable default.
	FormatJSON Format = iota

	// FormatYAML is convenient for hand-written test manifests.
	FormatYAML

	// FormatCBOR is the compact binary form, encoded deterministically.
	FormatCBOR
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return f.String()
}

// ParseFormat parses a format name ("json", "yaml"/"yml", "cbor"/"bytes").
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor", "bytes":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown manifest format: %q", name)
	}
}

// FormatFromFileName picks the format from a file extension.
func FormatFromFileName(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// VersionFileName is the remote file holding the latest version string.
func VersionFileName(packageName string) string {
	return packageName + ".version"
}

// ManifestFileName is the remote file holding one manifest version.
func ManifestFileName(packageName, version string, format Format) string {
	return packageName + "_" + version + "." + format.Extension()
}

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("manifest: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("manifest: CBOR decoder initialization failed: " + err.Error())
	}
}

// Decode parses raw manifest bytes and builds a validated model.Manifest.
//
// This method performs the following steps:
//  1. Deserializes the bytes in the given format into dto.Manifest
//  2. Checks the file version and required header fields
//  3. Builds the bundle graph, validating every dependency edge
//
// Returns an error if:
//   - The bytes cannot be decoded (wraps ErrParse)
//   - The header is incomplete or of an unknown version (wraps ErrParse)
//   - The bundle graph is inconsistent (wraps model.ErrManifestIntegrity)
//
// Example:
//
//	m, err := manifest.Decode(data, manifest.FormatJSON, true)
//	if errors.Is(err, manifest.ErrParse) {
//	    // corrupt download, safe to re-request
//	}
func Decode(data []byte, format Format, locationToLower bool) (*model.Manifest, error) {
	var raw dto.Manifest
	if err := unmarshal(data, format, &raw); err != nil {
		return nil, &ParseError{Source: format.String(), Err: err}
	}

	m, err := raw.ToManifest(locationToLower)
	if err != nil {
		if errors.Is(err, model.ErrManifestIntegrity) {
			return nil, err
		}
		return nil, &ParseError{Source: format.String(), Err: err}
	}
	return m, nil
}

// Encode serializes a manifest. CBOR output is deterministic.
func Encode(m *model.Manifest, format Format) ([]byte, error) {
	raw := dto.FromManifest(m)
	switch format {
	case FormatJSON:
		return json.MarshalIndent(raw, "", "  ")
	case FormatYAML:
		return yaml.Marshal(raw)
	case FormatCBOR:
		return cborEnc.Marshal(raw)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", format)
	}
}

func unmarshal(data []byte, format Format, v *dto.Manifest) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	case FormatCBOR:
		return cborDec.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported manifest format: %s", format)
	}
}

// ParseVersion extracts the version string from the raw contents of a
// version file. Surrounding whitespace and a UTF-8 BOM are ignored; the
// result must be a single non-empty line without inner whitespace.
func ParseVersion(raw string) (string, error) {
	version := strings.TrimPrefix(raw, "\ufeff")
	version = strings.TrimSpace(version)
	if version == "" {
		return "", &ParseError{Source: "version", Err: fmt.Errorf("empty package version")}
	}
	if strings.IndexFunc(version, unicode.IsSpace) >= 0 {
		return "", &ParseError{Source: "version", Err: fmt.Errorf("malformed package version %q", version)}
	}
	return version, nil
}
