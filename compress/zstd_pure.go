//go:build !zstdcgo

package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse to eliminate allocation
// overhead. The klauspost decoder is explicitly designed to be stored and
// reused after warmup.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPools holds one encoder pool per effective encoder level.
// The tuner sweeps levels chunk by chunk, so each level keeps its own
// warmed-up encoders.
var zstdEncoderPools = map[zstd.EncoderLevel]*sync.Pool{
	zstd.SpeedFastest:           newZstdEncoderPool(zstd.SpeedFastest),
	zstd.SpeedDefault:           newZstdEncoderPool(zstd.SpeedDefault),
	zstd.SpeedBetterCompression: newZstdEncoderPool(zstd.SpeedBetterCompression),
	zstd.SpeedBestCompression:   newZstdEncoderPool(zstd.SpeedBestCompression),
}

func newZstdEncoderPool(level zstd.EncoderLevel) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			encoder, err := zstd.NewWriter(nil,
				zstd.WithEncoderLevel(level),
				zstd.WithEncoderConcurrency(1),
				zstd.WithEncoderCRC(false),
			)
			if err != nil {
				// This should never happen with valid options
				panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
			}

			return encoder
		},
	}
}

// zstdEncoderLevel maps the pipeline's 1..9 scale to the four speed tiers
// the pure Go encoder implements.
func zstdEncoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// Compress compresses data with Zstandard at the given level.
func (c ZstdCodec) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	pool := zstdEncoderPools[zstdEncoderLevel(level)]
	encoder, _ := pool.Get().(*zstd.Encoder)
	defer pool.Put(encoder)

	// EncodeAll is stateless, safe with a pooled encoder.
	return encoder.EncodeAll(data, nil), nil
}

// Decompress restores a Zstandard payload into exactly dstLen bytes.
func (c ZstdCodec) Decompress(data []byte, dstLen int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	out, err := decoder.DecodeAll(data, make([]byte, 0, dstLen))
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if len(out) != dstLen {
		return nil, fmt.Errorf("zstd: decompressed %d bytes, want %d", len(out), dstLen)
	}

	return out, nil
}
