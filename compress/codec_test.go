package compress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btune-go/btune/format"
)

func compressibleData(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 37)
	}

	return buf
}

func incompressibleData(n int) []byte {
	rng := rand.New(rand.NewSource(99))
	buf := make([]byte, n)
	rng.Read(buf)

	return buf
}

func TestCodecs_RoundTrip(t *testing.T) {
	codecs := []format.CodecID{
		format.CodecLZ4,
		format.CodecLZ4HC,
		format.CodecZstd,
		format.CodecZlib,
		format.CodecS2,
	}

	inputs := []struct {
		name string
		data []byte
	}{
		{name: "compressible", data: compressibleData(8192)},
		{name: "incompressible", data: incompressibleData(8192)},
		{name: "tiny", data: []byte{1, 2, 3}},
		{name: "empty", data: nil},
	}

	for _, id := range codecs {
		codec, err := Lookup(id)
		require.NoError(t, err)

		for _, in := range inputs {
			for _, level := range []int{1, 5, 9} {
				t.Run(id.String()+"/"+in.name, func(t *testing.T) {
					compressed, err := codec.Compress(in.data, level)
					require.NoError(t, err)

					restored, err := codec.Decompress(compressed, len(in.data))
					require.NoError(t, err)
					require.Equal(t, in.data, restored)
				})
			}
		}
	}
}

func TestCodecs_CompressibleInputShrinks(t *testing.T) {
	data := compressibleData(16384)
	for _, id := range []format.CodecID{
		format.CodecLZ4, format.CodecLZ4HC, format.CodecZstd, format.CodecZlib, format.CodecS2,
	} {
		t.Run(id.String(), func(t *testing.T) {
			codec, err := Lookup(id)
			require.NoError(t, err)

			compressed, err := codec.Compress(data, 5)
			require.NoError(t, err)
			require.Less(t, len(compressed), len(data))
		})
	}
}

func TestLookup_UnknownCodec(t *testing.T) {
	_, err := Lookup(format.CodecID(200))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported codec")
	require.False(t, Has(format.CodecID(200)))
}

type stubCodec struct{ tag byte }

func (c stubCodec) Compress(data []byte, _ int) ([]byte, error) {
	return append([]byte{c.tag}, data...), nil
}

func (c stubCodec) Decompress(data []byte, _ int) ([]byte, error) {
	return data[1:], nil
}

func TestRegister_FirstRegistrationWins(t *testing.T) {
	id := format.CodecID(201)
	Register(id, stubCodec{tag: 'a'})
	Register(id, stubCodec{tag: 'b'})

	codec, err := Lookup(id)
	require.NoError(t, err)

	out, err := codec.Compress([]byte{1}, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 1}, out)
}

func TestList_ContainsBuiltins(t *testing.T) {
	names := List()
	for _, want := range []string{"lz4", "lz4hc", "zstd", "zlib", "s2"} {
		require.Contains(t, names, want)
	}
}

func TestZlib_RejectsOversizedPayload(t *testing.T) {
	data := compressibleData(1024)
	compressed, err := ZlibCodec{}.Compress(data, 5)
	require.NoError(t, err)

	// Asking for fewer bytes than the payload decodes to must fail.
	_, err = ZlibCodec{}.Decompress(compressed, 512)
	require.Error(t, err)
}

func TestZstd_LengthMismatch(t *testing.T) {
	data := compressibleData(1024)
	compressed, err := ZstdCodec{}.Compress(data, 5)
	require.NoError(t, err)

	_, err = ZstdCodec{}.Decompress(compressed, 512)
	require.Error(t, err)
}
