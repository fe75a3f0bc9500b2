// Package http fetches bundles, version files and manifests.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Streaming fetches with progress tracking
//   - file:// URLs for bundles shipped with the client
//   - Classification of failures into ErrNetwork, ErrTimeout and ErrCanceled
//
// # Basic Usage
//
//	client := http.NewClient(30 * time.Second)
//
//	// Stream a bundle with progress callback
//	n, err := client.Fetch(ctx, bundleURL, tmp, func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
//
// # Manifests
//
// RemoteSource requests the version file and manifest of a package from a
// main host, falling back to a second host:
//
//	src := &http.RemoteSource{
//	    Client:       client,
//	    MainHost:     "https://cdn.example.com/main",
//	    FallbackHost: "https://mirror.example.com/main",
//	    PackageName:  "main",
//	    Format:       manifest.FormatJSON,
//	}
//	version, err := src.RequestVersion(ctx, true)
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
