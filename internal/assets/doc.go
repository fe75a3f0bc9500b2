// Package assets ties a manifest source, a local cache and the built-in
// bundle set into one package with a version and manifest lifecycle.
//
// # Lifecycle
//
// A package moves through three steps, each retried by the caller on
// failure:
//
//  1. RequestVersion fetches the latest version string
//  2. RequestManifest fetches and decodes the manifest for that version
//  3. ActivateManifest swaps the active manifest atomically
//
// Failures are *StepError values matching ErrRequestVersion,
// ErrRequestManifest or ErrActivateManifest.
//
// # Batches
//
// With an active manifest the package creates download and unpack batches:
//
//	batch, err := pkg.CreateDownloaderByTags([]string{"dlc"}, onProgress)
//	if err != nil {
//	    return err
//	}
//	err = batch.Run(ctx)
package assets
