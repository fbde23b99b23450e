//go:build zstdcgo

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"
)

// zstdNativeLevel maps the pipeline's 1..9 scale onto libzstd's 1..22.
// The top of the scale is pinned to 19; levels beyond that need window
// sizes that break decompression on default settings.
func zstdNativeLevel(level int) int {
	switch {
	case level <= 1:
		return 1
	case level >= 9:
		return 19
	default:
		return level * 2
	}
}

// Compress compresses data with libzstd at the given level.
func (c ZstdCodec) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.CompressLevel(nil, data, zstdNativeLevel(level)), nil
}

// Decompress restores a Zstandard payload into exactly dstLen bytes.
func (c ZstdCodec) Decompress(data []byte, dstLen int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out, err := gozstd.Decompress(make([]byte, 0, dstLen), data)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if len(out) != dstLen {
		return nil, fmt.Errorf("zstd: decompressed %d bytes, want %d", len(out), dstLen)
	}

	return out, nil
}
