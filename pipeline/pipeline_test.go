package pipeline

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btune-go/btune/format"
)

func numericChunk(n int) []byte {
	buf := make([]byte, n)
	var v uint32
	for off := 0; off+4 <= n; off += 4 {
		binary.LittleEndian.PutUint32(buf[off:], v/7)
		v++
	}

	return buf
}

func TestCompressDecompress_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		codec     format.CodecID
		filter    format.Filter
		splitmode format.SplitMode
		clevel    int
	}{
		{name: "lz4 shuffle split", codec: format.CodecLZ4, filter: format.FilterShuffle, splitmode: format.SplitAlways, clevel: 5},
		{name: "lz4 no filter", codec: format.CodecLZ4, filter: format.FilterNone, splitmode: format.SplitNever, clevel: 5},
		{name: "lz4hc bitshuffle", codec: format.CodecLZ4HC, filter: format.FilterBitShuffle, splitmode: format.SplitNever, clevel: 9},
		{name: "zstd shuffle", codec: format.CodecZstd, filter: format.FilterShuffle, splitmode: format.SplitNever, clevel: 3},
		{name: "zlib no filter", codec: format.CodecZlib, filter: format.FilterNone, splitmode: format.SplitNever, clevel: 1},
		{name: "s2 auto split", codec: format.CodecS2, filter: format.FilterShuffle, splitmode: format.SplitAuto, clevel: 1},
		{name: "stored", codec: format.CodecLZ4, filter: format.FilterShuffle, splitmode: format.SplitAlways, clevel: 0},
	}

	src := numericChunk(64*format.KB)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(4, 2)
			ctx.Compcode = tt.codec
			ctx.Filters[MaxFilters-1] = tt.filter
			ctx.Splitmode = tt.splitmode
			ctx.Clevel = tt.clevel

			ctime, err := Compress(ctx, src)
			require.NoError(t, err)
			require.Greater(t, ctime, 0.0)
			require.Equal(t, len(src), ctx.SourceSize)
			require.Equal(t, len(ctx.Dest), ctx.DestSize)

			dctx := NewDContext(2)
			out, dtime, err := Decompress(dctx, ctx.Dest)
			require.NoError(t, err)
			require.Greater(t, dtime, 0.0)
			require.Equal(t, src, out)
		})
	}
}

func TestCompress_ByteDeltaCompound(t *testing.T) {
	src := numericChunk(16*format.KB)
	ctx := NewContext(4, 1)
	ctx.Filters[MaxFilters-2] = format.FilterShuffle
	ctx.Filters[MaxFilters-1] = format.FilterByteDelta
	ctx.FiltersMeta[MaxFilters-1] = 4
	ctx.Splitmode = format.SplitNever

	_, err := Compress(ctx, src)
	require.NoError(t, err)

	out, _, err := Decompress(NewDContext(1), ctx.Dest)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestCompress_SpecialChunk(t *testing.T) {
	ctx := NewContext(4, 1)
	src := make([]byte, 256*format.KB)

	_, err := Compress(ctx, src)
	require.NoError(t, err)
	require.Equal(t, format.MaxOverhead+4, ctx.DestSize)

	out, _, err := Decompress(NewDContext(1), ctx.Dest)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestCompress_RepeatedElementIsSpecial(t *testing.T) {
	ctx := NewContext(4, 1)
	src := make([]byte, 4096)
	for off := 0; off < len(src); off += 4 {
		copy(src[off:], []byte{0xde, 0xad, 0xbe, 0xef})
	}

	_, err := Compress(ctx, src)
	require.NoError(t, err)
	require.Equal(t, format.MaxOverhead+4, ctx.DestSize)

	out, _, err := Decompress(NewDContext(1), ctx.Dest)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestCompress_AppliesNewNthreads(t *testing.T) {
	ctx := NewContext(4, 2)
	ctx.NewNthreads = 4

	_, err := Compress(ctx, numericChunk(1024))
	require.NoError(t, err)
	require.Equal(t, 4, ctx.Nthreads)
	require.Equal(t, 0, ctx.NewNthreads)
	require.Equal(t, 1, ctx.NChunks)
}

func TestDecompress_MalformedFrames(t *testing.T) {
	ctx := NewContext(4, 1)
	_, err := Compress(ctx, numericChunk(4096))
	require.NoError(t, err)
	frame := ctx.Dest

	t.Run("short frame", func(t *testing.T) {
		_, _, err := Decompress(nil, frame[:8])
		require.Error(t, err)
	})

	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad[0] = 99
		_, _, err := Decompress(nil, bad)
		require.Error(t, err)
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, _, err := Decompress(nil, frame[:len(frame)-4])
		require.Error(t, err)
	})
}

type recordingTuner struct {
	nextBlocksize int
	nextCparams   int
	updates       int
	lastCtime     float64
}

func (r *recordingTuner) NextBlocksize(*Context) { r.nextBlocksize++ }
func (r *recordingTuner) NextCparams(*Context)   { r.nextCparams++ }
func (r *recordingTuner) Update(_ *Context, ctime float64) {
	r.updates++
	r.lastCtime = ctime
}
func (r *recordingTuner) Free(cctx *Context) { cctx.TunerParams = nil }

func TestCompressChunk_DrivesTuner(t *testing.T) {
	ctx := NewContext(4, 1)
	rec := &recordingTuner{}
	ctx.TunerParams = rec

	src := numericChunk(4096)
	for i := 0; i < 3; i++ {
		_, err := CompressChunk(ctx, src)
		require.NoError(t, err)
	}

	require.Equal(t, 3, rec.nextBlocksize)
	require.Equal(t, 3, rec.nextCparams)
	require.Equal(t, 3, rec.updates)
	require.Greater(t, rec.lastCtime, 0.0)
	require.Equal(t, 3, ctx.NChunks)
}

func TestCompressChunk_WithoutTuner(t *testing.T) {
	ctx := NewContext(4, 1)
	_, err := CompressChunk(ctx, numericChunk(4096))
	require.NoError(t, err)
	require.Equal(t, 1, ctx.NChunks)
}
