package compress

import (
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains internal state that benefits from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// lz4HCCompressorPool pools lz4.CompressorHC instances. The HC matcher
// carries a much larger search state, so reuse matters even more here.
var lz4HCCompressorPool = sync.Pool{
	New: func() any {
		return &lz4.CompressorHC{}
	},
}

// LZ4Codec is the fast LZ4 block codec. LZ4 has a single fast compression
// path, so the level argument only selects it over nothing; the tuner still
// sweeps levels because block splitting interacts with them.
type LZ4Codec struct{}

var _ Codec = (*LZ4Codec)(nil)

// Compress compresses data with the fast LZ4 block format.
func (c LZ4Codec) Compress(data []byte, _ int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible input: store raw so Decompress can copy it back.
		return append([]byte(nil), data...), nil
	}

	return dst[:n], nil
}

// Decompress restores an LZ4 block into exactly dstLen bytes.
func (c LZ4Codec) Decompress(data []byte, dstLen int) ([]byte, error) {
	return lz4DecompressBlock(data, dstLen)
}

// LZ4HCCodec is LZ4 with the high-compression matcher. The compression
// level maps onto lz4.CompressionLevel, trading time for ratio while
// keeping the LZ4 block format (and its decompression speed).
type LZ4HCCodec struct{}

var _ Codec = (*LZ4HCCodec)(nil)

// hcLevel maps the pipeline's 1..9 scale to lz4 HC levels.
func hcLevel(level int) lz4.CompressionLevel {
	switch {
	case level <= 1:
		return lz4.Level1
	case level >= 9:
		return lz4.Level9
	default:
		// Level1..Level9 are 1<<9 .. 1<<17.
		return lz4.CompressionLevel(1 << (8 + level))
	}
}

// Compress compresses data with the LZ4 HC matcher at the given level.
func (c LZ4HCCodec) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4HCCompressorPool.Get().(*lz4.CompressorHC)
	defer lz4HCCompressorPool.Put(lc)

	lc.Level = hcLevel(level)
	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return append([]byte(nil), data...), nil
	}

	return dst[:n], nil
}

// Decompress restores an LZ4 block into exactly dstLen bytes.
func (c LZ4HCCodec) Decompress(data []byte, dstLen int) ([]byte, error) {
	return lz4DecompressBlock(data, dstLen)
}

func lz4DecompressBlock(data []byte, dstLen int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) == dstLen {
		// Raw fallback written by Compress for incompressible input.
		out := make([]byte, dstLen)
		if n, err := lz4.UncompressBlock(data, out); err == nil && n == dstLen {
			return out, nil
		}

		return append([]byte(nil), data...), nil
	}
	out := make([]byte, dstLen)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, err
	}
	if n != dstLen {
		return nil, fmt.Errorf("lz4: decompressed %d bytes, want %d", n, dstLen)
	}

	return out, nil
}
