package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/handiism/assetsync/internal/cache"
	"github.com/handiism/assetsync/internal/download"
	"github.com/handiism/assetsync/internal/manifest"
	"github.com/handiism/assetsync/internal/model"
	"github.com/handiism/assetsync/internal/resolve"
)

// ManifestSource serves the version file and manifest files of a package.
type ManifestSource interface {
	RequestVersion(ctx context.Context, appendTimeTicks bool) (string, error)
	RequestManifest(ctx context.Context, version string) ([]byte, error)
}

// State is the last lifecycle step a package completed.
type State int

const (
	StateInit State = iota
	StateVersionReady
	StateManifestReady
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateVersionReady:
		return "version-ready"
	case StateManifestReady:
		return "manifest-ready"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Package is one asset package: its active manifest, local cache and
// built-in files.
//
// The active manifest is swapped atomically by ActivateManifest. Readers
// that loaded the old manifest keep a consistent view of it; new calls see
// the new one.
//
// Example:
//
//	pkg := assets.New(opts, source, store, builtin, client)
//	version, err := pkg.RequestVersion(ctx)
//	m, err := pkg.RequestManifest(ctx, version)
//	err = pkg.ActivateManifest(m)
//	batch, err := pkg.CreateDownloaderByTags([]string{"dlc"}, nil)
type Package struct {
	opts    Options
	source  ManifestSource
	cache   *cache.Cache
	builtin *cache.Builtin
	fetcher download.Fetcher
	log     *slog.Logger

	active atomic.Pointer[model.Manifest]

	mu    sync.Mutex
	state State
}

// New creates a package with no active manifest. source may be nil for an
// offline package that only restores local manifests.
func New(opts Options, source ManifestSource, c *cache.Cache, builtin *cache.Builtin, fetcher download.Fetcher) *Package {
	if builtin == nil {
		builtin = cache.NewBuiltinFromNames("", nil)
	}
	return &Package{
		opts:    opts,
		source:  source,
		cache:   c,
		builtin: builtin,
		fetcher: fetcher,
		log:     opts.logger().With("package", opts.PackageName),
	}
}

// Name returns the package name.
func (p *Package) Name() string { return p.opts.PackageName }

// Cache returns the package's local cache.
func (p *Package) Cache() *cache.Cache { return p.cache }

// State returns the last completed lifecycle step.
func (p *Package) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Package) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// RequestVersion fetches the latest published version string.
func (p *Package) RequestVersion(ctx context.Context) (string, error) {
	if p.source == nil {
		return "", p.stepError(ErrRequestVersion, errors.New("package has no manifest source"))
	}
	version, err := p.source.RequestVersion(ctx, p.opts.AppendTimeTicks)
	if err != nil {
		return "", p.stepError(ErrRequestVersion, err)
	}
	p.log.Debug("version requested", "version", version)
	p.setState(StateVersionReady)
	return version, nil
}

// RequestManifest fetches and decodes the manifest for version. The
// manifest is returned but not activated.
func (p *Package) RequestManifest(ctx context.Context, version string) (*model.Manifest, error) {
	if p.source == nil {
		return nil, p.stepError(ErrRequestManifest, errors.New("package has no manifest source"))
	}
	data, err := p.source.RequestManifest(ctx, version)
	if err != nil {
		return nil, p.stepError(ErrRequestManifest, err)
	}
	m, err := manifest.Decode(data, p.opts.ManifestFormat, p.opts.LocationToLower)
	if err != nil {
		return nil, p.stepError(ErrRequestManifest, err)
	}
	if m.PackageName() != p.opts.PackageName || m.PackageVersion() != version {
		return nil, p.stepError(ErrRequestManifest, fmt.Errorf("got manifest %s@%s, want %s@%s",
			m.PackageName(), m.PackageVersion(), p.opts.PackageName, version))
	}
	p.log.Debug("manifest requested", "version", version, "bundles", len(m.Bundles()))
	p.setState(StateManifestReady)
	return m, nil
}

// ActivateManifest makes m the active manifest. With AutoSaveManifest the
// snapshot is written first and a failed write leaves the previous
// manifest active.
func (p *Package) ActivateManifest(m *model.Manifest) error {
	if m == nil {
		return p.stepError(ErrActivateManifest, errors.New("nil manifest"))
	}
	if m.PackageName() != p.opts.PackageName {
		return p.stepError(ErrActivateManifest, fmt.Errorf("manifest belongs to package %s", m.PackageName()))
	}
	if p.opts.AutoSaveManifest {
		if err := p.saveSnapshot(m); err != nil {
			return p.stepError(ErrActivateManifest, err)
		}
	}
	p.active.Store(m)
	p.setState(StateActive)
	p.log.Info("manifest activated", "version", m.PackageVersion())
	return nil
}

// ActiveManifest returns the active manifest, or nil before activation.
func (p *Package) ActiveManifest() *model.Manifest {
	return p.active.Load()
}

// PackageVersion returns the version of the active manifest, or "" before
// activation.
func (p *Package) PackageVersion() string {
	if m := p.active.Load(); m != nil {
		return m.PackageVersion()
	}
	return ""
}

// Update runs the three lifecycle steps in order and returns the new
// version. A version equal to the active one is not fetched again.
func (p *Package) Update(ctx context.Context) (string, error) {
	version, err := p.RequestVersion(ctx)
	if err != nil {
		return "", err
	}
	if version == p.PackageVersion() {
		return version, nil
	}
	m, err := p.RequestManifest(ctx, version)
	if err != nil {
		return "", err
	}
	return version, p.ActivateManifest(m)
}

func (p *Package) requireManifest() (*model.Manifest, error) {
	m := p.active.Load()
	if m == nil {
		return nil, fmt.Errorf("package %s: %w", p.opts.PackageName, ErrNoActiveManifest)
	}
	return m, nil
}

func (p *Package) engine() resolve.Engine {
	return resolve.Engine{IsCached: p.cache.IsCached, IsBuiltin: p.builtin.IsBuiltin}
}

func (p *Package) resolver() resolve.Resolver {
	return resolve.Resolver{
		MainHost:     p.opts.MainHost,
		FallbackHost: p.opts.FallbackHost,
		IsCached:     p.cache.IsCached,
		IsBuiltin:    p.builtin.IsBuiltin,
		BuiltinURL:   p.builtin.URL,
	}
}

func (p *Package) stepError(step, err error) error {
	p.log.Warn("lifecycle step failed", "step", step.Error(), "err", err)
	return &StepError{Step: step, Package: p.opts.PackageName, Err: err}
}
