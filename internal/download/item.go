package download

import (
	"fmt"

	"github.com/handiism/assetsync/internal/model"
)

// Action is what a work item does to materialize its bundle.
type Action int

const (
	// ActionDownload fetches the bundle from its URLs into the cache.
	ActionDownload Action = iota

	// ActionUnpack imports a built-in bundle into the cache.
	ActionUnpack
)

func (a Action) String() string {
	switch a {
	case ActionDownload:
		return "download"
	case ActionUnpack:
		return "unpack"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ItemState is the execution state of one work item.
type ItemState int

const (
	ItemQueued ItemState = iota
	ItemInFlight
	ItemRetryPending
	ItemDone
	ItemExhausted
)

func (s ItemState) String() string {
	switch s {
	case ItemQueued:
		return "queued"
	case ItemInFlight:
		return "in-flight"
	case ItemRetryPending:
		return "retry-pending"
	case ItemDone:
		return "done"
	case ItemExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// WorkItem is one bundle paired with the action to perform on it.
type WorkItem struct {
	Info   model.BundleInfo
	Action Action
}

// ItemStatus is a snapshot of a work item's execution state.
type ItemStatus struct {
	WorkItem
	State    ItemState
	Attempts int
	LastErr  error
	Bytes    int64
}

// item is the batch-owned mutable state of a WorkItem. All fields after
// WorkItem are guarded by Batch.mu.
type item struct {
	WorkItem
	state    ItemState
	attempts int
	lastErr  error
	seen     int64
}

func (it *item) bundle() *model.Bundle { return it.Info.Bundle }

// url returns the URL for the given 1-based attempt: the main URL first,
// the fallback URL on every retry.
func (it *item) url(attempt int) string {
	if attempt > 1 && it.Info.FallbackURL != "" {
		return it.Info.FallbackURL
	}
	return it.Info.MainURL
}

// NewItems pairs every info with action.
func NewItems(infos []model.BundleInfo, action Action) []WorkItem {
	out := make([]WorkItem, len(infos))
	for i, info := range infos {
		out[i] = WorkItem{Info: info, Action: action}
	}
	return out
}
