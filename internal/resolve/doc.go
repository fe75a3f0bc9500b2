// Package resolve turns a manifest plus local state into work-lists and
// per-bundle acquisition modes.
//
// # Engine
//
// Engine computes which bundles still need network (download) or unpack
// action for a Criterion:
//
//	engine := resolve.Engine{IsCached: c.IsCached, IsBuiltin: builtin.IsBuiltin}
//	list, err := engine.DownloadList(m, resolve.ByTags("dlc"))
//
// Results keep manifest declaration order and contain each bundle once.
//
// # Resolver
//
// Resolver decides how one bundle is acquired, in fixed priority order:
// cache, then built-in, then remote (main and fallback host):
//
//	r := resolve.Resolver{MainHost: cdn, FallbackHost: mirror, ...}
//	info := r.Resolve(bundle) // info.Mode, info.MainURL, info.FallbackURL
package resolve
