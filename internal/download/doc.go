// Package download executes work lists of bundles under a bounded
// concurrency, retry and timeout policy.
//
// # Batch
//
// A Batch runs one work list:
//
//  1. Admit items in list order into at most MaxConcurrency slots
//  2. Fetch each bundle from its main URL, or import it from the built-in root
//  3. Verify and install the bytes into the cache
//  4. Commit each finished item to the cache record immediately
//  5. Settle as Succeeded, Failed or Canceled
//
// # Basic Usage
//
//	batch, err := download.NewBatch(items, client, cache, opts, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := batch.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
// Messages are reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Counters are polled with Batch.Progress, which is safe to call from
// another goroutine while Run executes.
//
// # Retry Logic
//
// A failed attempt is retried against the fallback URL with exponential
// backoff, configured by Options.MaxRetries, Options.RetryCooldown and
// Options.RetryExponent. An item that runs out of retries fails the whole
// batch; the BatchError names its bundle.
package download
