package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/handiism/assetsync/internal/manifest"
)

// RemoteSource fetches the version file and manifest files of one package
// from a main host with a fallback host.
//
// Concurrent requests for the same file share a single round trip.
type RemoteSource struct {
	Client       *Client
	MainHost     string
	FallbackHost string
	PackageName  string
	Format       manifest.Format

	// Now stamps the anti-cache query parameter. Nil means time.Now.
	Now func() time.Time

	group singleflight.Group
}

// RequestVersion fetches and parses the package version file. When
// appendTimeTicks is set a t=<unix-nanos> query parameter is added so that
// intermediate caches do not serve a stale file.
func (s *RemoteSource) RequestVersion(ctx context.Context, appendTimeTicks bool) (string, error) {
	name := manifest.VersionFileName(s.PackageName)
	query := ""
	if appendTimeTicks {
		query = "?t=" + strconv.FormatInt(s.now().UnixNano(), 10)
	}

	body, err := s.fetchShared(ctx, "version", name, query)
	if err != nil {
		return "", err
	}
	return manifest.ParseVersion(string(body))
}

// RequestManifest fetches the raw manifest file for version.
func (s *RemoteSource) RequestManifest(ctx context.Context, version string) ([]byte, error) {
	name := manifest.ManifestFileName(s.PackageName, version, s.Format)
	return s.fetchShared(ctx, "manifest:"+version, name, "")
}

// fetchShared collapses concurrent fetches under key. A caller whose context
// ends stops waiting without affecting the shared request.
func (s *RemoteSource) fetchShared(ctx context.Context, key, name, query string) ([]byte, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		return s.fetchFirst(ctx, name, query)
	})

	select {
	case <-ctx.Done():
		return nil, classify(ctx, name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// fetchFirst tries the main host, then the fallback host.
func (s *RemoteSource) fetchFirst(ctx context.Context, name, query string) ([]byte, error) {
	var errs []error
	for _, host := range s.hosts() {
		body, err := s.Client.Get(ctx, joinURL(host, name)+query)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrCanceled) {
			return nil, err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, &TransportError{Kind: ErrNetwork, URL: name, Err: fmt.Errorf("no host configured")}
	}
	return nil, errors.Join(errs...)
}

func (s *RemoteSource) hosts() []string {
	var hosts []string
	if s.MainHost != "" {
		hosts = append(hosts, s.MainHost)
	}
	if s.FallbackHost != "" && s.FallbackHost != s.MainHost {
		hosts = append(hosts, s.FallbackHost)
	}
	return hosts
}

func (s *RemoteSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func joinURL(host, name string) string {
	return strings.TrimRight(host, "/") + "/" + name
}
