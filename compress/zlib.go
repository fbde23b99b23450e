package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ZlibCodec is the zlib/deflate codec. It exists for the high-ratio band
// alongside Zstandard; deflate levels 1..9 map directly onto the
// pipeline's level scale.
type ZlibCodec struct{}

var _ Codec = (*ZlibCodec)(nil)

// Compress compresses data with deflate at the given level.
func (c ZlibCodec) Compress(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if level < 1 {
		level = 1
	} else if level > 9 {
		level = 9
	}

	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress restores a zlib payload into exactly dstLen bytes.
func (c ZlibCodec) Decompress(data []byte, dstLen int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	defer r.Close()

	out := make([]byte, dstLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	// The payload must not decode past dstLen.
	if n, _ := r.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("zlib: decompressed more than %d bytes", dstLen)
	}

	return out, nil
}
