package btune

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/btune-go/btune/entropy"
	"github.com/btune-go/btune/pipeline"
)

var errNoChunk = errors.New("btune: no chunk data available for features")

// featureCount is the length of the vector the classifier consumes.
const featureCount = 5

// featureVector reduces a chunk to the fixed-size input of the inference
// model: the entropy-probe ratio, the probe speeds over reference
// synthetic chunks, and the chunk geometry.
type featureVector struct {
	cratio      float64
	arangeSpeed float64
	zerosSpeed  float64
	typesize    float64
	chunksize   float64
}

func (fv *featureVector) slice() []float64 {
	return []float64{fv.cratio, fv.arangeSpeed, fv.zerosSpeed, fv.typesize, fv.chunksize}
}

// computeFeatures builds the feature vector for the chunk currently on
// the context. The reference speeds are measured once and cached for the
// lifetime of the tuner.
func (t *Tuner) computeFeatures(cctx *pipeline.Context) (*featureVector, error) {
	src := cctx.Src
	if len(src) == 0 {
		return nil, errNoChunk
	}

	if t.zerosSpeed < 0 {
		t.zerosSpeed = measureProbeSpeed(zerosChunk(len(src)))
		t.arangeSpeed = measureProbeSpeed(arangeChunk(len(src)))
	}

	return &featureVector{
		cratio:      entropy.Cratio(src, entropy.DefaultMinLen, entropy.DefaultIPShift),
		arangeSpeed: t.arangeSpeed,
		zerosSpeed:  t.zerosSpeed,
		typesize:    float64(cctx.Typesize),
		chunksize:   float64(len(src)),
	}, nil
}

// measureProbeSpeed times one entropy-probe pass and returns bytes/s.
func measureProbeSpeed(chunk []byte) float64 {
	start := time.Now()
	entropy.EstimateSize(chunk)
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-9
	}

	return float64(len(chunk)) / elapsed
}

// arangeChunk builds a synthetic chunk of consecutive 64-bit counters.
func arangeChunk(n int) []byte {
	chunk := make([]byte, n)
	var i uint64
	for off := 0; off+8 <= n; off += 8 {
		binary.LittleEndian.PutUint64(chunk[off:], i)
		i++
	}

	return chunk
}

// zerosChunk builds an all-zeros chunk.
func zerosChunk(n int) []byte {
	return make([]byte, n)
}
