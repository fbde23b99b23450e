package pipeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btune-go/btune/format"
)

func randomData(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	rng.Read(buf)

	return buf
}

func TestFilters_RoundTrip(t *testing.T) {
	filters := []format.Filter{
		format.FilterShuffle,
		format.FilterBitShuffle,
		format.FilterByteDelta,
	}

	cases := []struct {
		name string
		n    int
		lane int
	}{
		{name: "u32 aligned", n: 1024, lane: 4},
		{name: "u64 aligned", n: 4096, lane: 8},
		{name: "u16 with tail", n: 1023, lane: 2},
		{name: "u32 with tail", n: 1026, lane: 4},
		{name: "single byte lane", n: 512, lane: 1},
		{name: "too short to transpose", n: 6, lane: 4},
	}

	for _, f := range filters {
		for _, tc := range cases {
			t.Run(f.String()+"/"+tc.name, func(t *testing.T) {
				src := randomData(tc.n, int64(tc.n)*7)
				filtered := make([]byte, tc.n)
				restored := make([]byte, tc.n)

				require.NoError(t, applyFilter(f, src, filtered, tc.lane))
				require.NoError(t, undoFilter(f, filtered, restored, tc.lane))
				require.Equal(t, src, restored)
			})
		}
	}
}

func TestApplyFilter_Unknown(t *testing.T) {
	src := make([]byte, 16)
	dst := make([]byte, 16)
	require.Error(t, applyFilter(format.Filter(9), src, dst, 4))
	require.Error(t, undoFilter(format.Filter(9), src, dst, 4))
}

func TestShuffleBytes_Transposes(t *testing.T) {
	// Two u32 elements: shuffle groups the first bytes, then the second
	// bytes, and so on.
	src := []byte{0, 1, 2, 3, 10, 11, 12, 13}
	dst := make([]byte, len(src))
	shuffleBytes(src, dst, 4)
	require.Equal(t, []byte{0, 10, 1, 11, 2, 12, 3, 13}, dst)
}

func TestByteDelta_EncodesLaneDeltas(t *testing.T) {
	// Lane-major input, two lanes of four bytes each.
	src := []byte{1, 2, 3, 4, 10, 20, 30, 40}
	dst := make([]byte, len(src))
	byteDelta(src, dst, 2)
	require.Equal(t, []byte{1, 1, 1, 1, 10, 10, 10, 10}, dst)
}

func TestShuffleBits_SmallInputPassthrough(t *testing.T) {
	// Fewer than 16 whole elements: bitshuffle copies through.
	src := randomData(24, 5)
	dst := make([]byte, len(src))
	shuffleBits(src, dst, 4)
	require.Equal(t, src, dst)
}
