// Package cache implements the local bundle cache of a package.
//
// This package contains:
//   - FileSystem, the storage backend interface, with DiskFS and MemoryFS
//   - Record, the set of bundles confirmed present in the cache
//   - Cache, which verifies, decodes, installs and commits bundles
//   - Builtin, the read-only set of bundles shipped with the client
//
// # Installing a bundle
//
//	c := cache.New(cache.NewDiskFS(root))
//	if _, err := c.Load(); err != nil {
//	    return err
//	}
//
//	w, _ := c.Create(bundle)       // transport writes published bytes here
//	io.Copy(w, body)
//	w.Close()
//	err := c.Install(ctx, bundle)  // verify size/hash, decode, rename
//	c.Commit(bundle)               // now IsCached(bundle) is true
//
// # Clearing
//
// Entries are never expired implicitly. ClearAll empties the cache;
// ClearUnused removes files no bundle of a given manifest refers to.
package cache
