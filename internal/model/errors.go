package model

import (
	"errors"
	"fmt"
)

// ErrManifestIntegrity marks a manifest that is internally inconsistent:
// a dangling dependency edge, a duplicate identity, or an asset path that
// the manifest does not declare. These are never retried.
var ErrManifestIntegrity = errors.New("manifest integrity violation")

// IntegrityError describes one manifest integrity violation.
type IntegrityError struct {
	// Subject is the bundle GUID or asset path the violation was found on.
	Subject string
	Msg     string
}

func (e *IntegrityError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %s", ErrManifestIntegrity.Error(), e.Subject, e.Msg)
}

func (e *IntegrityError) Unwrap() error { return ErrManifestIntegrity }

func integrityf(subject, format string, args ...any) error {
	return &IntegrityError{Subject: subject, Msg: fmt.Sprintf(format, args...)}
}
