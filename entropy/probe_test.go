package entropy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btune-go/btune/compress"
	"github.com/btune-go/btune/format"
)

func repeatedBytes(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 256)
	}

	return buf
}

func randomBytes(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	rng.Read(buf)

	return buf
}

func TestCratio_Deterministic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "zeros", data: make([]byte, 4096)},
		{name: "repeated", data: repeatedBytes(1024)},
		{name: "random", data: randomBytes(8192, 42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Cratio(tt.data, DefaultMinLen, DefaultIPShift)
			second := Cratio(tt.data, DefaultMinLen, DefaultIPShift)
			require.Equal(t, first, second)
		})
	}
}

func TestCratio_ZerosCompressesHard(t *testing.T) {
	cratio := Cratio(make([]byte, 1024), DefaultMinLen, DefaultIPShift)
	require.GreaterOrEqual(t, cratio, 30.0)
}

func TestCratio_RepeatedPattern(t *testing.T) {
	// 256-byte period repeated 4 times: one long match after the first
	// period of literals.
	cratio := Cratio(repeatedBytes(1024), DefaultMinLen, DefaultIPShift)
	require.Greater(t, cratio, 1.5)
	require.Less(t, cratio, 8.0)
}

func TestCratio_RandomIsIncompressible(t *testing.T) {
	cratio := Cratio(randomBytes(16384, 7), DefaultMinLen, DefaultIPShift)
	require.Greater(t, cratio, 0.0)
	require.Less(t, cratio, 1.2)
}

func TestCratio_ShortInput(t *testing.T) {
	require.Equal(t, 0.0, Cratio(nil, DefaultMinLen, DefaultIPShift))
	require.Equal(t, 0.0, Cratio(make([]byte, 12), DefaultMinLen, DefaultIPShift))
}

func TestCratio_TruncatesToHashWindow(t *testing.T) {
	// Bytes past the hash window must not change the estimate.
	long := randomBytes(hashLen*4, 3)
	require.Equal(t,
		Cratio(long[:hashLen], DefaultMinLen, DefaultIPShift),
		Cratio(long, DefaultMinLen, DefaultIPShift))
}

func TestEstimateSize_Bounds(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short", data: make([]byte, 8)},
		{name: "zeros", data: make([]byte, 2048)},
		{name: "random", data: randomBytes(2048, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := EstimateSize(tt.data)
			require.GreaterOrEqual(t, est, 0)
			require.LessOrEqual(t, est, len(tt.data))
		})
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	codec, err := compress.Lookup(format.CodecEntropyProbe)
	require.NoError(t, err)

	data := make([]byte, 1024)
	estimated, err := codec.Compress(data, 5)
	require.NoError(t, err)
	require.NotEmpty(t, estimated)
	require.Less(t, len(estimated), len(data))

	_, err = codec.Decompress(estimated, len(data))
	require.ErrorIs(t, err, ErrNoDecoder)
}
