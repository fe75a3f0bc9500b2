package content

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a published bundle file is encoded.
type Compression int

const (
	// CompressionNone means the published file is the bundle itself.
	CompressionNone Compression = iota

	// CompressionLZ4 means the published file is an lz4 frame.
	CompressionLZ4

	// CompressionZstd means the published file is a zstd frame.
	CompressionZstd
)

// String returns the manifest name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ParseCompression parses a compression name. The empty string is CompressionNone.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// NewDecoder wraps r with a decoder for c. Closing the result releases
// decoder resources but does not close r.
func NewDecoder(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return zstdReadCloser{dec}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// Compress encodes data with c. CompressionNone returns data unchanged.
func Compress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// Decompress decodes a whole buffer encoded with c.
func Decompress(c Compression, data []byte) ([]byte, error) {
	r, err := NewDecoder(c, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", c, err)
	}
	return out, nil
}
