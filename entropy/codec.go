package entropy

import (
	"errors"

	"github.com/btune-go/btune/compress"
	"github.com/btune-go/btune/format"
)

// ErrNoDecoder is returned when decompression of a probe payload is
// attempted. The probe is an estimator; its output is not decodable.
var ErrNoDecoder = errors.New("entropy: probe has no decoder")

// Probe is the entropy probe exposed as a codec so the normal compress
// path can be used to obtain estimated ratios and instrumented speeds.
//
// Compress returns a zero-filled payload of the estimated compressed
// size. The bytes carry no information; only the length matters.
type Probe struct{}

var _ compress.Codec = (*Probe)(nil)

// Compress estimates the compressed size of data and returns a placeholder
// payload of that length.
func (p Probe) Compress(data []byte, _ int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return make([]byte, EstimateSize(data)), nil
}

// Decompress always fails; probe payloads are not decodable.
func (p Probe) Decompress(_ []byte, _ int) ([]byte, error) {
	return nil, ErrNoDecoder
}

// Register installs the probe in the codec registry under its reserved id.
// Safe to call more than once.
func Register() {
	compress.Register(format.CodecEntropyProbe, Probe{})
}
