// Package compression wraps the codecs used for stored document content.
package compression

import "bytes"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ByName returns the compressor registered under name, defaulting to zstd.
func ByName(name string) Compressor {
	switch name {
	case "gzip":
		return GzipCompressor{}
	default:
		return ZstdCompressor{}
	}
}

// Detect picks the codec that wrote data from its magic number. Unknown
// data falls back to zstd, which reports the corruption.
func Detect(data []byte) Compressor {
	if bytes.HasPrefix(data, gzipMagic) {
		return GzipCompressor{}
	}
	if bytes.HasPrefix(data, zstdMagic) {
		return ZstdCompressor{}
	}
	return ZstdCompressor{}
}
