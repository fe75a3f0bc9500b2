package model

import "fmt"

// LoadMode is how a bundle is acquired at runtime.
type LoadMode int

const (
	// LoadFromCache reads the bundle from the local cache; no network.
	LoadFromCache LoadMode = iota

	// LoadFromBuiltin reads the bundle shipped with the client.
	LoadFromBuiltin

	// LoadFromRemote fetches the bundle from the main or fallback host.
	LoadFromRemote
)

// String returns the lowercase name of the mode.
func (m LoadMode) String() string {
	switch m {
	case LoadFromCache:
		return "cache"
	case LoadFromBuiltin:
		return "builtin"
	case LoadFromRemote:
		return "remote"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// BundleInfo is a bundle annotated with its acquisition mode.
//
// For LoadFromRemote, MainURL and FallbackURL are the two hosts to try.
// For LoadFromBuiltin both URLs point at the built-in (streaming) file so
// that downloaders and unpackers handle every mode the same way.
// For LoadFromCache both are empty.
//
// BundleInfo values are built fresh per resolution and never modified.
type BundleInfo struct {
	Bundle      *Bundle
	Mode        LoadMode
	MainURL     string
	FallbackURL string
}

// String returns "<guid> (<mode>)" for log messages.
func (i BundleInfo) String() string {
	if i.Bundle == nil {
		return "<nil> (" + i.Mode.String() + ")"
	}
	return i.Bundle.GUID + " (" + i.Mode.String() + ")"
}
