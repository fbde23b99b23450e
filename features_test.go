package btune

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btune-go/btune/pipeline"
)

func TestComputeFeatures(t *testing.T) {
	tuner := &Tuner{zerosSpeed: -1}
	cctx := pipeline.NewContext(8, 1)
	cctx.Src = arangeChunk(64 * 1024)

	fv, err := tuner.computeFeatures(cctx)
	require.NoError(t, err)
	require.Equal(t, 8.0, fv.typesize)
	require.Equal(t, 65536.0, fv.chunksize)
	require.Greater(t, fv.cratio, 1.0)
	require.Greater(t, fv.zerosSpeed, 0.0)
	require.Greater(t, fv.arangeSpeed, 0.0)
	require.Len(t, fv.slice(), featureCount)
}

func TestComputeFeatures_CachesReferenceSpeeds(t *testing.T) {
	tuner := &Tuner{zerosSpeed: -1}
	cctx := pipeline.NewContext(4, 1)
	cctx.Src = arangeChunk(16 * 1024)

	first, err := tuner.computeFeatures(cctx)
	require.NoError(t, err)
	second, err := tuner.computeFeatures(cctx)
	require.NoError(t, err)

	require.Equal(t, first.zerosSpeed, second.zerosSpeed)
	require.Equal(t, first.arangeSpeed, second.arangeSpeed)
}

func TestComputeFeatures_NoChunk(t *testing.T) {
	tuner := &Tuner{zerosSpeed: -1}
	cctx := pipeline.NewContext(4, 1)

	_, err := tuner.computeFeatures(cctx)
	require.ErrorIs(t, err, errNoChunk)
}

func TestSyntheticChunks(t *testing.T) {
	zeros := zerosChunk(1024)
	require.Len(t, zeros, 1024)
	for _, b := range zeros {
		require.Zero(t, b)
	}

	arange := arangeChunk(1024)
	require.Len(t, arange, 1024)
	// Consecutive counters: first element 0, second 1.
	require.Equal(t, byte(0), arange[0])
	require.Equal(t, byte(1), arange[8])
}
