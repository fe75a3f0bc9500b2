package dto

import (
	"strings"

	"github.com/handiism/assetsync/internal/model"
)

// Bundle is the serialized form of a bundle descriptor.
type Bundle struct {
	GUID        string   `json:"guid" yaml:"guid" cbor:"guid"`
	FileName    string   `json:"file_name" yaml:"file_name" cbor:"file_name"`
	Hash        string   `json:"hash,omitempty" yaml:"hash,omitempty" cbor:"hash,omitempty"`
	Size        int64    `json:"size,omitempty" yaml:"size,omitempty" cbor:"size,omitempty"`
	Compression string   `json:"compression,omitempty" yaml:"compression,omitempty" cbor:"compression,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" cbor:"tags,omitempty"`
	DependIDs   []string `json:"depends,omitempty" yaml:"depends,omitempty" cbor:"depends,omitempty"`
}

// ToBundle converts the DTO to a model.Bundle.
func (b *Bundle) ToBundle() *model.Bundle {
	return &model.Bundle{
		GUID:        b.GUID,
		FileName:    b.FileName,
		Hash:        strings.ToLower(b.Hash),
		Size:        b.Size,
		Compression: b.Compression,
		Tags:        b.Tags,
		DependIDs:   b.DependIDs,
	}
}

// FromBundle converts a model.Bundle to its DTO.
func FromBundle(b *model.Bundle) Bundle {
	return Bundle{
		GUID:        b.GUID,
		FileName:    b.FileName,
		Hash:        b.Hash,
		Size:        b.Size,
		Compression: b.Compression,
		Tags:        b.Tags,
		DependIDs:   b.DependIDs,
	}
}

// Asset is the serialized form of an asset path mapping.
type Asset struct {
	Path      string   `json:"path" yaml:"path" cbor:"path"`
	BundleID  string   `json:"bundle" yaml:"bundle" cbor:"bundle"`
	DependIDs []string `json:"depends,omitempty" yaml:"depends,omitempty" cbor:"depends,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty" cbor:"tags,omitempty"`
}

// ToAsset converts the DTO to a model.Asset.
func (a *Asset) ToAsset() *model.Asset {
	return &model.Asset{
		Path:      a.Path,
		BundleID:  a.BundleID,
		DependIDs: a.DependIDs,
		Tags:      a.Tags,
	}
}

// FromAsset converts a model.Asset to its DTO.
func FromAsset(a *model.Asset) Asset {
	return Asset{
		Path:      a.Path,
		BundleID:  a.BundleID,
		DependIDs: a.DependIDs,
		Tags:      a.Tags,
	}
}
