package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/assetsync/internal/manifest"
)

func TestClient_Fetch(t *testing.T) {
	payload := bytes.Repeat([]byte("bundle"), 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.bundle":
			if got := r.Header.Get("User-Agent"); got != "assetsync" {
				t.Errorf("User-Agent = %q", got)
			}
			w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
			w.Write(payload)
		case "/slow.bundle":
			time.Sleep(200 * time.Millisecond)
			w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		url     string
		timeout time.Duration
		wantErr error
	}{
		{name: "ok", url: srv.URL + "/ok.bundle"},
		{name: "not found", url: srv.URL + "/missing.bundle", wantErr: ErrNetwork},
		{name: "client timeout", url: srv.URL + "/slow.bundle", timeout: 50 * time.Millisecond, wantErr: ErrTimeout},
		{name: "unsupported scheme", url: "ftp://example.com/a.bundle", wantErr: ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.timeout)
			var buf bytes.Buffer
			var last int64
			n, err := c.Fetch(context.Background(), tt.url, &buf, func(written, total int64) {
				last = written
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != int64(len(payload)) || last != n {
				t.Errorf("n = %d, last progress = %d, want %d", n, last, len(payload))
			}
			if !bytes.Equal(buf.Bytes(), payload) {
				t.Error("body mismatch")
			}
		})
	}
}

func TestClient_FetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(0).Get(context.Background(), srv.URL+"/a.bundle")
	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if status.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", status.StatusCode)
	}
}

func TestClient_FetchCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(0).Get(ctx, srv.URL+"/a.bundle")
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("error = %v, want ErrCanceled", err)
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
		t.Errorf("error %v matches more than one kind", err)
	}
}

func TestClient_FetchFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.bundle")
	if err := os.WriteFile(p, []byte("builtin"), 0o644); err != nil {
		t.Fatal(err)
	}
	u := (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()

	var buf bytes.Buffer
	var total int64
	n, err := NewClient(0).Fetch(context.Background(), u, &buf, func(_, tot int64) { total = tot })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 || total != 7 || buf.String() != "builtin" {
		t.Errorf("n = %d, total = %d, body = %q", n, total, buf.String())
	}

	_, err = NewClient(0).Fetch(context.Background(), u+".missing", &buf, nil)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("missing file error = %v, want ErrNetwork", err)
	}
}

func TestRemoteSource_RequestVersion(t *testing.T) {
	var mainHits, fallbackHits atomic.Int32
	var mu sync.Mutex
	var gotQuery string
	query := func() string {
		mu.Lock()
		defer mu.Unlock()
		return gotQuery
	}
	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mainHits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer main.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHits.Add(1)
		mu.Lock()
		gotQuery = r.URL.RawQuery
		mu.Unlock()
		if r.URL.Path != "/pkg/main.version" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("\ufeff2026.10.19\r\n"))
	}))
	defer fallback.Close()

	src := &RemoteSource{
		Client:       NewClient(0),
		MainHost:     main.URL + "/pkg/",
		FallbackHost: fallback.URL + "/pkg",
		PackageName:  "main",
		Format:       manifest.FormatJSON,
		Now:          func() time.Time { return time.Unix(0, 42) },
	}

	v, err := src.RequestVersion(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "2026.10.19" {
		t.Errorf("version = %q", v)
	}
	if q := query(); q != "t=42" {
		t.Errorf("query = %q, want t=42", q)
	}
	if mainHits.Load() != 1 || fallbackHits.Load() != 1 {
		t.Errorf("hits main=%d fallback=%d", mainHits.Load(), fallbackHits.Load())
	}

	if _, err := src.RequestVersion(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q := query(); q != "" {
		t.Errorf("query = %q, want none", q)
	}
}

func TestRemoteSource_RequestManifest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		if !strings.HasSuffix(r.URL.Path, "/main_v7.yaml") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("file_version: \"1\"\n"))
	}))
	defer srv.Close()

	src := &RemoteSource{
		Client:      NewClient(0),
		MainHost:    srv.URL,
		PackageName: "main",
		Format:      manifest.FormatYAML,
	}

	var wg sync.WaitGroup
	results := make([][]byte, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = src.RequestManifest(context.Background(), "v7")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if !bytes.HasPrefix(results[i], []byte("file_version")) {
			t.Errorf("request %d body = %q", i, results[i])
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestRemoteSource_AllHostsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := &RemoteSource{Client: NewClient(0), MainHost: srv.URL, FallbackHost: srv.URL + "/b", PackageName: "main"}
	_, err := src.RequestManifest(context.Background(), "v1")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}

	empty := &RemoteSource{Client: NewClient(0), PackageName: "main"}
	if _, err := empty.RequestVersion(context.Background(), false); !errors.Is(err, ErrNetwork) {
		t.Errorf("no hosts error = %v, want ErrNetwork", err)
	}
}
