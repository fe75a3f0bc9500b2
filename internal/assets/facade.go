package assets

import (
	"context"
	"errors"

	"github.com/handiism/assetsync/internal/cache"
	"github.com/handiism/assetsync/internal/download"
	"github.com/handiism/assetsync/internal/model"
	"github.com/handiism/assetsync/internal/resolve"
)

// CreateDownloaderByAll returns a batch fetching every bundle of the active
// manifest that is neither cached nor built in.
func (p *Package) CreateDownloaderByAll(onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	return p.createDownloader(resolve.All(), onProgress)
}

// CreateDownloaderByTags returns a batch fetching the untagged bundles plus
// those carrying any of tags.
func (p *Package) CreateDownloaderByTags(tags []string, onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	return p.createDownloader(resolve.ByTags(tags...), onProgress)
}

// CreateDownloaderByPaths returns a batch fetching the main bundles and
// dependency closures of the given asset paths.
//
// Paths missing from the manifest are reported in the returned error,
// which wraps resolve.ErrInvalidSelection. The batch still covers every
// valid path and is nil only when nothing could be resolved.
func (p *Package) CreateDownloaderByPaths(paths []string, onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	return p.createDownloader(resolve.ByAssetPaths(paths...), onProgress)
}

// CreateUnpackerByAll returns a batch importing every built-in bundle that
// is not cached yet.
func (p *Package) CreateUnpackerByAll(onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	return p.createUnpacker(resolve.All(), onProgress)
}

// CreateUnpackerByTags returns a batch importing the built-in bundles
// carrying any of tags.
func (p *Package) CreateUnpackerByTags(tags []string, onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	return p.createUnpacker(resolve.ByTags(tags...), onProgress)
}

func (p *Package) createDownloader(c resolve.Criterion, onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	m, err := p.requireManifest()
	if err != nil {
		return nil, err
	}

	list, selErr := p.engine().DownloadList(m, c)
	if selErr != nil && !errors.Is(selErr, resolve.ErrInvalidSelection) {
		return nil, selErr
	}
	if selErr != nil && len(list) == 0 {
		return nil, selErr
	}

	items := download.NewItems(p.resolver().Infos(list, model.LoadFromRemote), download.ActionDownload)
	b, err := p.newBatch(items, onProgress)
	if err != nil {
		return nil, err
	}
	p.log.Debug("downloader created", "criterion", c.String(), "items", len(items))
	return b, selErr
}

func (p *Package) createUnpacker(c resolve.Criterion, onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	m, err := p.requireManifest()
	if err != nil {
		return nil, err
	}

	list, err := p.engine().UnpackList(m, c)
	if err != nil {
		return nil, err
	}

	items := download.NewItems(p.resolver().Infos(list, model.LoadFromBuiltin), download.ActionUnpack)
	b, err := p.newBatch(items, onProgress)
	if err != nil {
		return nil, err
	}
	p.log.Debug("unpacker created", "criterion", c.String(), "items", len(items))
	return b, nil
}

func (p *Package) newBatch(items []download.WorkItem, onProgress func(download.ProgressEvent)) (*download.Batch, error) {
	opts := p.opts.Batch
	if opts.Logger == nil {
		opts.Logger = p.log
	}
	return download.NewBatch(items, p.fetcher, persistingStore{Cache: p.cache, pkg: p}, opts, onProgress)
}

// persistingStore saves the cache index after every commit so that a
// crash mid-batch keeps what finished. Each save rewrites the whole index;
// Cache.SaveIndex serializes saves from batches running side by side.
type persistingStore struct {
	*cache.Cache
	pkg *Package
}

func (s persistingStore) Commit(b *model.Bundle) bool {
	added := s.Cache.Commit(b)
	if err := s.Cache.SaveIndex(); err != nil {
		s.pkg.log.Warn("saving cache index failed", "bundle", b.GUID, "err", err)
	}
	return added
}

// BundleInfo resolves the main bundle of the asset at location.
func (p *Package) BundleInfo(location string) (model.BundleInfo, error) {
	m, err := p.requireManifest()
	if err != nil {
		return model.BundleInfo{}, err
	}
	b, err := m.MainBundle(location)
	if err != nil {
		return model.BundleInfo{}, err
	}
	return p.resolver().Resolve(b), nil
}

// DependBundleInfos resolves every dependency of the asset at location,
// excluding its main bundle.
func (p *Package) DependBundleInfos(location string) ([]model.BundleInfo, error) {
	m, err := p.requireManifest()
	if err != nil {
		return nil, err
	}
	deps, err := m.AllDependencies(location)
	if err != nil {
		return nil, err
	}
	r := p.resolver()
	out := make([]model.BundleInfo, len(deps))
	for i, b := range deps {
		out[i] = r.Resolve(b)
	}
	return out, nil
}

// AssetInfosByTags returns the assets of the active manifest carrying any
// of tags.
func (p *Package) AssetInfosByTags(tags []string) ([]*model.Asset, error) {
	m, err := p.requireManifest()
	if err != nil {
		return nil, err
	}
	return m.AssetsByTags(tags), nil
}

// ClearAllCache removes every cached bundle of the package.
func (p *Package) ClearAllCache(ctx context.Context) (int, error) {
	n, err := p.cache.ClearAll(ctx)
	p.log.Info("cache cleared", "removed", n)
	return n, err
}

// ClearUnusedCache removes cached bundles the active manifest no longer
// refers to.
func (p *Package) ClearUnusedCache(ctx context.Context) (int, error) {
	m, err := p.requireManifest()
	if err != nil {
		return 0, err
	}
	n, err := p.cache.ClearUnused(ctx, m)
	p.log.Info("unused cache cleared", "removed", n)
	return n, err
}

// CheckContents drops recorded bundles of the active manifest whose files
// have disappeared and returns them. They are downloaded again by the next
// batch.
func (p *Package) CheckContents() ([]*model.Bundle, error) {
	m, err := p.requireManifest()
	if err != nil {
		return nil, err
	}
	missing := p.cache.Missing(m)
	if len(missing) > 0 {
		p.log.Warn("cached bundles missing", "count", len(missing))
		if err := p.cache.SaveIndex(); err != nil {
			return missing, err
		}
	}
	return missing, nil
}
