package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// DefaultTimeout bounds a single request when NewClient is given zero.
const DefaultTimeout = 60 * time.Second

// Transport outcome kinds. A successful fetch returns a nil error; every
// failure wraps exactly one of these.
var (
	ErrNetwork  = errors.New("network error")
	ErrTimeout  = errors.New("request timed out")
	ErrCanceled = errors.New("request canceled")
)

// TransportError is a failed fetch of one URL.
type TransportError struct {
	Kind error
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusError is a response with a status other than 200 OK.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Client wraps HTTP operations for bundle and manifest hosts.
//
// Client provides:
//   - Configured User-Agent header
//   - Timeout handling
//   - Streaming fetch with progress tracking
//   - file:// URLs, used for built-in bundles
//
// Example usage:
//
//	client := NewClient(30 * time.Second)
//
//	// Fetch a small text file
//	version, err := client.GetString(ctx, "https://cdn.example.com/main/main.version")
//
//	// Stream a bundle with progress
//	n, err := client.Fetch(ctx, bundleURL, file, func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client with the given per-request timeout.
// Zero selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "assetsync",
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// It is -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns a *TransportError if:
//   - The request fails (ErrNetwork, ErrTimeout or ErrCanceled)
//   - The response status is not 200 OK (ErrNetwork wrapping *StatusError)
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Fetch(ctx, rawURL, &buf, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetString performs a GET request and returns the response body as a string.
//
// Example:
//
//	version, err := client.GetString(ctx, "https://cdn.example.com/main/main.version")
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Fetch streams the resource at rawURL into w and returns the number of
// bytes written.
//
// http and https URLs are fetched with a GET request; file URLs are read
// from the local file system. onProgress, when non-nil, is called after
// every chunk with (bytesWritten, totalBytes); totalBytes is -1 when the
// server sends no Content-Length.
//
// Example:
//
//	n, err := client.Fetch(ctx, url, tmp, nil)
//	if errors.Is(err, http.ErrTimeout) {
//	    // retry against the fallback host
//	}
func (c *Client) Fetch(ctx context.Context, rawURL string, w io.Writer, onProgress func(written, total int64)) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, &TransportError{Kind: ErrNetwork, URL: rawURL, Err: err}
	}

	switch u.Scheme {
	case "file":
		return c.fetchFile(ctx, u, w, onProgress)
	case "http", "https":
		return c.fetchHTTP(ctx, rawURL, w, onProgress)
	default:
		return 0, &TransportError{Kind: ErrNetwork, URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (c *Client) fetchHTTP(ctx context.Context, rawURL string, w io.Writer, onProgress func(written, total int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, &TransportError{Kind: ErrNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, classify(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &TransportError{
			Kind: ErrNetwork,
			URL:  rawURL,
			Err:  &StatusError{StatusCode: resp.StatusCode, Status: resp.Status},
		}
	}

	n, err := copyWithProgress(w, resp.Body, resp.ContentLength, onProgress)
	if err != nil {
		return n, classify(ctx, rawURL, err)
	}
	return n, nil
}

func (c *Client) fetchFile(ctx context.Context, u *url.URL, w io.Writer, onProgress func(written, total int64)) (int64, error) {
	rawURL := u.String()
	f, err := os.Open(filepath.FromSlash(u.Path))
	if err != nil {
		return 0, &TransportError{Kind: ErrNetwork, URL: rawURL, Err: err}
	}
	defer f.Close()

	total := int64(-1)
	if info, err := f.Stat(); err == nil {
		total = info.Size()
	}

	n, err := copyWithProgress(w, &contextReader{ctx: ctx, r: f}, total, onProgress)
	if err != nil {
		return n, classify(ctx, rawURL, err)
	}
	return n, nil
}

func copyWithProgress(w io.Writer, r io.Reader, total int64, onProgress func(written, total int64)) (int64, error) {
	if onProgress != nil {
		w = &ProgressWriter{Writer: w, Total: total, OnUpdate: onProgress}
	}
	return io.Copy(w, r)
}

// classify maps a transport failure to its outcome kind. The caller's
// context decides between cancellation and timeout; a deadline on the
// client itself also counts as a timeout.
func classify(ctx context.Context, rawURL string, err error) error {
	kind := ErrNetwork
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		kind = ErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrCanceled
	}
	return &TransportError{Kind: kind, URL: rawURL, Err: err}
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
