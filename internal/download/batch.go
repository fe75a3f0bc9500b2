package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/assetsync/internal/model"
)

// Fetcher streams a URL into w, reporting (written, total) as it goes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, w io.Writer, onProgress func(written, total int64)) (int64, error)
}

// Store materializes bundles into the local cache.
type Store interface {
	Create(b *model.Bundle) (io.WriteCloser, error)
	Import(ctx context.Context, b *model.Bundle, srcPath string) error
	Install(ctx context.Context, b *model.Bundle) error
	Commit(b *model.Bundle) bool
	Discard(b *model.Bundle)
}

// BatchState is the lifecycle state of a batch.
type BatchState int

const (
	BatchPending BatchState = iota
	BatchRunning
	BatchSucceeded
	BatchFailed
	BatchCanceled
)

func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchRunning:
		return "running"
	case BatchSucceeded:
		return "succeeded"
	case BatchFailed:
		return "failed"
	case BatchCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether s is Succeeded, Failed or Canceled.
func (s BatchState) Terminal() bool {
	return s >= BatchSucceeded
}

// Batch executes one work list under a concurrency, retry and timeout
// policy.
//
// Items are admitted in list order into at most MaxConcurrency slots. A
// failed attempt is retried in its slot against the fallback URL after a
// cooldown; an item that fails MaxRetries+1 times fails the batch and
// cancels the rest. Each completed item is committed to the Store by the
// goroutine running Run as soon as it finishes, so a concurrent resolution
// sees what has been committed so far.
//
// Example:
//
//	b, err := download.NewBatch(items, client, cache, opts, func(e download.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	if err != nil {
//	    return err
//	}
//	if err := b.Run(ctx); errors.Is(err, download.ErrBatchTimeout) {
//	    // ran out of time
//	}
type Batch struct {
	items   []*item
	fetcher Fetcher
	store   Store
	opts    Options
	log     *slog.Logger

	onProgress func(ProgressEvent)

	itemsDone  atomic.Int64
	bytesDone  atomic.Int64
	bytesTotal int64

	mu       sync.Mutex
	state    BatchState
	err      error
	cancel   context.CancelFunc
	canceled bool
	done     chan struct{}
}

// NewBatch creates a pending batch. It returns an error if opts is invalid
// or an item has no bundle.
func NewBatch(items []WorkItem, fetcher Fetcher, store Store, opts Options, onProgress func(ProgressEvent)) (*Batch, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch options: %w", err)
	}
	if fetcher == nil || store == nil {
		return nil, errors.New("batch needs a fetcher and a store")
	}

	b := &Batch{
		items:      make([]*item, len(items)),
		fetcher:    fetcher,
		store:      store,
		opts:       opts,
		log:        opts.logger(),
		onProgress: onProgress,
		done:       make(chan struct{}),
	}
	for i, wi := range items {
		if wi.Info.Bundle == nil {
			return nil, fmt.Errorf("work item %d has no bundle", i)
		}
		b.items[i] = &item{WorkItem: wi}
		b.bytesTotal += wi.Info.Bundle.Size
	}
	return b, nil
}

// result is a finished item handed from a worker to Run.
type result struct {
	it  *item
	err error
}

// Run executes the batch and blocks until it reaches a terminal state.
// It returns nil on success and a *BatchError otherwise. Run may be called
// once.
func (b *Batch) Run(ctx context.Context) error {
	b.mu.Lock()
	switch {
	case b.state == BatchCanceled:
		b.mu.Unlock()
		return b.err
	case b.state != BatchPending:
		b.mu.Unlock()
		return errors.New("batch already started")
	}
	runCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()
	b.cancel = cancel
	b.state = BatchRunning
	b.mu.Unlock()

	b.progress(ProgressEvent{Message: fmt.Sprintf("Starting %d items", len(b.items)), Level: LevelInfo})

	results := make(chan result)
	go b.dispatch(runCtx, results)

	var failed *item
	var failErr error
	for r := range results {
		if r.err == nil {
			b.commit(r.it)
			continue
		}
		var itemErr *ItemError
		if failed == nil && errors.As(r.err, &itemErr) {
			failed, failErr = r.it, r.err
		}
	}

	return b.finish(ctx, runCtx, failed, failErr)
}

// dispatch admits items in list order into the bounded worker pool and
// closes results once every admitted item has reported.
func (b *Batch) dispatch(ctx context.Context, results chan<- result) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.MaxConcurrency)

	for _, it := range b.items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := b.process(gctx, it)
			results <- result{it: it, err: err}
			return err
		})
	}

	_ = g.Wait()
	close(results)
}

// process runs attempts on one item until it succeeds, exhausts its
// retries or ctx ends.
func (b *Batch) process(ctx context.Context, it *item) error {
	bundle := it.bundle()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		rawURL := it.url(attempt)
		b.setItem(it, func() {
			it.state = ItemInFlight
			it.attempts = attempt
		})

		err := b.attempt(ctx, it, rawURL)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			b.store.Discard(bundle)
			return ctx.Err()
		}

		err = &ItemError{BundleID: bundle.GUID, Attempt: attempt, URL: rawURL, Err: err}
		if attempt > b.opts.MaxRetries {
			b.setItem(it, func() {
				it.state = ItemExhausted
				it.lastErr = err
			})
			b.log.Error("item exhausted retries", "bundle", bundle.GUID, "attempt", attempt, "url", rawURL, "err", err)
			b.progress(ProgressEvent{Message: fmt.Sprintf("Failed %s after %d attempts: %v", bundle.GUID, attempt, err), Level: LevelError})
			return err
		}

		b.setItem(it, func() {
			it.state = ItemRetryPending
			it.lastErr = err
		})
		b.log.Warn("item attempt failed", "bundle", bundle.GUID, "attempt", attempt, "url", rawURL, "err", err)
		b.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s", attempt, b.opts.MaxRetries, bundle.GUID), Level: LevelWarning})

		if err := b.waitForRetry(ctx, attempt-1); err != nil {
			return err
		}
	}
}

// attempt performs one download or unpack of it and installs the result.
func (b *Batch) attempt(ctx context.Context, it *item, rawURL string) error {
	bundle := it.bundle()

	switch it.Action {
	case ActionUnpack:
		if err := b.store.Import(ctx, bundle, localPath(rawURL)); err != nil {
			b.store.Discard(bundle)
			return err
		}
		b.addBytes(it, bundle.Size)
	default:
		w, err := b.store.Create(bundle)
		if err != nil {
			return err
		}
		_, err = b.fetcher.Fetch(ctx, rawURL, w, func(written, _ int64) {
			b.addBytes(it, written)
		})
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			b.store.Discard(bundle)
			return err
		}
	}

	return b.store.Install(ctx, bundle)
}

// commit records a finished item. Only Run calls it.
func (b *Batch) commit(it *item) {
	bundle := it.bundle()
	b.store.Commit(bundle)
	b.addBytes(it, bundle.Size)
	b.setItem(it, func() {
		it.state = ItemDone
		it.lastErr = nil
	})
	b.itemsDone.Add(1)
	b.log.Debug("item committed", "bundle", bundle.GUID, "action", it.Action.String())
	b.progress(ProgressEvent{Message: fmt.Sprintf("Committed: %s", bundle.FileName), Level: LevelVerbose})
}

// finish settles the terminal state exactly once. An exhausted item
// outranks a cancel that arrived while the window drained.
func (b *Batch) finish(parent, runCtx context.Context, failed *item, failErr error) error {
	b.mu.Lock()
	allDone := int(b.itemsDone.Load()) == len(b.items)
	switch {
	case allDone:
		b.state = BatchSucceeded
	case failed != nil:
		b.state = BatchFailed
		b.err = &BatchError{Kind: ErrBatchFailed, BundleID: failed.bundle().GUID, Err: failErr}
	case b.canceled || errors.Is(parent.Err(), context.Canceled):
		b.state = BatchCanceled
		b.err = &BatchError{Kind: ErrBatchCanceled}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		b.state = BatchFailed
		b.err = &BatchError{Kind: ErrBatchTimeout, BundleID: b.lastFailedLocked(), Err: runCtx.Err()}
	default:
		b.state = BatchFailed
		b.err = &BatchError{Kind: ErrBatchFailed, BundleID: b.lastFailedLocked()}
	}
	err := b.err
	close(b.done)
	b.mu.Unlock()

	if err != nil {
		b.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		return err
	}
	b.progress(ProgressEvent{Message: fmt.Sprintf("Completed %d items", len(b.items)), Level: LevelSuccess})
	return nil
}

func (b *Batch) lastFailedLocked() string {
	for i := len(b.items) - 1; i >= 0; i-- {
		if b.items[i].lastErr != nil {
			return b.items[i].bundle().GUID
		}
	}
	return ""
}

// Cancel stops the batch. In-flight items observe the cancellation through
// their context and the batch settles as Canceled, unless an item has
// already exhausted its retries. Cancel on a terminal batch is a no-op.
func (b *Batch) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.state.Terminal() || b.canceled:
		return
	case b.state == BatchPending:
		b.canceled = true
		b.state = BatchCanceled
		b.err = &BatchError{Kind: ErrBatchCanceled}
		close(b.done)
	default:
		b.canceled = true
		b.cancel()
	}
}

// State returns the current batch state.
func (b *Batch) State() BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the terminal error, or nil while running or after success.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Done is closed when the batch reaches a terminal state.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Progress returns the current counters. It is safe to call while Run
// executes.
func (b *Batch) Progress() Progress {
	return Progress{
		ItemsDone:  int(b.itemsDone.Load()),
		ItemsTotal: len(b.items),
		BytesDone:  b.bytesDone.Load(),
		BytesTotal: b.bytesTotal,
	}
}

// Items returns a snapshot of every item in list order.
func (b *Batch) Items() []ItemStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ItemStatus, len(b.items))
	for i, it := range b.items {
		out[i] = ItemStatus{
			WorkItem: it.WorkItem,
			State:    it.state,
			Attempts: it.attempts,
			LastErr:  it.lastErr,
			Bytes:    it.seen,
		}
	}
	return out
}

func (b *Batch) setItem(it *item, update func()) {
	b.mu.Lock()
	update()
	b.mu.Unlock()
}

// addBytes raises the byte count of it to n. A retry restarts the
// transfer from zero, so only growth past the highest count seen is added
// to the batch total. Bundles without a declared size are not counted
// toward the batch total.
func (b *Batch) addBytes(it *item, n int64) {
	size := it.bundle().Size
	if size > 0 && n > size {
		n = size
	}
	b.mu.Lock()
	delta := n - it.seen
	if delta > 0 {
		it.seen = n
	}
	b.mu.Unlock()
	if delta > 0 && size > 0 {
		b.bytesDone.Add(delta)
	}
}

func (b *Batch) waitForRetry(ctx context.Context, tries int) error {
	cooldown := float64(b.opts.RetryCooldown) * math.Pow(b.opts.RetryExponent, float64(tries))
	// Large exponents overflow time.Duration.
	if cooldown > float64(MaxRetryCooldown) {
		cooldown = float64(MaxRetryCooldown)
	}
	timer := time.NewTimer(time.Duration(cooldown))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Batch) progress(event ProgressEvent) {
	if b.onProgress != nil {
		b.onProgress(event)
	}
}

// localPath turns a file:// URL into a host path. Anything else is
// returned unchanged.
func localPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return rawURL
	}
	return filepath.FromSlash(u.Path)
}
