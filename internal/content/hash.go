package content

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/zeebo/blake3"
)

// Hash returns the hex BLAKE3-256 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through BLAKE3 and returns the hex digest and the
// number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	h := NewHasher()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hashing content: %w", err)
	}
	return h.Digest(), n, nil
}

// Hasher accumulates a BLAKE3 digest over everything written to it.
type Hasher struct {
	h hash.Hash
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Digest returns the hex digest of the bytes written so far.
func (h *Hasher) Digest() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// ValidDigest reports whether s looks like a hex BLAKE3-256 digest.
func ValidDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
