// Package content provides content identity and encoding helpers for bundles.
//
// # Hashing
//
// Bundle identity on the wire is the lowercase hex BLAKE3-256 digest of the
// published file:
//
//	digest := content.Hash(data)
//	digest, n, err := content.HashReader(file)
//
// A Hasher can be placed in an io.MultiWriter so a download is hashed while
// it streams to disk.
//
// # Compression
//
// Published bundles may be lz4 (frame format) or zstd compressed. The local
// cache always stores decoded bytes:
//
//	r, err := content.NewDecoder(content.CompressionZstd, file)
//	defer r.Close()
//	io.Copy(dst, r)
package content
