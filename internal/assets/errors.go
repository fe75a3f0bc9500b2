package assets

import (
	"errors"
	"fmt"
)

// Lifecycle step failures. Each step can be retried by the caller.
var (
	ErrRequestVersion   = errors.New("request version failed")
	ErrRequestManifest  = errors.New("request manifest failed")
	ErrActivateManifest = errors.New("activate manifest failed")
	ErrNoActiveManifest = errors.New("no active manifest")
)

// StepError is a failed lifecycle step of one package.
type StepError struct {
	// Step is one of ErrRequestVersion, ErrRequestManifest or ErrActivateManifest.
	Step    error
	Package string
	Err     error
}

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: package %s: %v", e.Step, e.Package, e.Err)
}

func (e *StepError) Unwrap() []error { return []error{e.Step, e.Err} }
