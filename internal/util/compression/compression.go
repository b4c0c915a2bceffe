// Package compression provides compressors for post content stored at rest.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ForEncoding returns the compressor for a blog's content_encoding setting.
func ForEncoding(encoding string) (Compressor, error) {
	switch encoding {
	case "", "zstd":
		return ZstdCompressor{}, nil
	case "gzip":
		return GzipCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown content encoding %q", encoding)
	}
}
