package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Codec is the S2 codec, the fast byte-oriented option tried alongside
// LZ4 in the speed-leaning bands. Levels 1..5 use the fast encoder,
// 6 and up the better-compression encoder.
type S2Codec struct{}

var _ Codec = (*S2Codec)(nil)

// Compress compresses data with S2.
func (c S2Codec) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if level >= 6 {
		return s2.EncodeBetter(nil, data), nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress restores an S2 payload into exactly dstLen bytes.
func (c S2Codec) Decompress(data []byte, dstLen int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	out, err := s2.Decode(make([]byte, 0, dstLen), data)
	if err != nil {
		return nil, err
	}
	if len(out) != dstLen {
		return nil, fmt.Errorf("s2: decompressed %d bytes, want %d", len(out), dstLen)
	}

	return out, nil
}
