package download

import (
	"errors"
	"fmt"
)

// Terminal error kinds of a batch.
var (
	// ErrBatchFailed means an item exhausted its retries.
	ErrBatchFailed = errors.New("batch failed")

	// ErrBatchTimeout means the batch ran past its timeout.
	ErrBatchTimeout = errors.New("batch timed out")

	// ErrBatchCanceled means the caller canceled the batch.
	ErrBatchCanceled = errors.New("batch canceled")
)

// ErrItemTransport marks one failed attempt to download or unpack an item.
var ErrItemTransport = errors.New("item transport failure")

// BatchError is the terminal error of a batch that did not succeed.
type BatchError struct {
	// Kind is ErrBatchFailed, ErrBatchTimeout or ErrBatchCanceled.
	Kind error

	// BundleID is the GUID of the item that failed last. Empty when the
	// batch was canceled or timed out before any item failed.
	BundleID string

	Err error
}

func (e *BatchError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.BundleID != "" {
		msg += ": bundle " + e.BundleID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ItemError is a failed attempt on one item.
type ItemError struct {
	BundleID string
	Attempt  int
	URL      string
	Err      error
}

func (e *ItemError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: bundle %s attempt %d (%s): %v", ErrItemTransport, e.BundleID, e.Attempt, e.URL, e.Err)
}

func (e *ItemError) Unwrap() []error { return []error{ErrItemTransport, e.Err} }
