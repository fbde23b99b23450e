package pipeline

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btune-go/btune/compress"
	"github.com/btune-go/btune/format"
	"github.com/btune-go/btune/internal/pool"
)

// Frame header flags.
const (
	frameVersion = 1

	flagSpecial = 1 << 0 // constant-run chunk, payload is one element
	flagSplit   = 1 << 1 // payload is typesize lanes, each length-prefixed
	flagStored  = 1 << 2 // payload stored raw (clevel 0)
)

// header offsets within the format.MaxOverhead-byte frame header
const (
	offVersion   = 0
	offCodec     = 1
	offClevel    = 2
	offFlags     = 3
	offFilters   = 4
	offMeta      = 10
	offSplit     = 16
	offTypesize  = 20
	offNBytes    = 24
	offCBytes    = 28
	headerLength = format.MaxOverhead
)

// CompressChunk drives one chunk through the tuner contract: the installed
// tuner proposes parameters, the chunk is compressed with them, and the
// tuner observes the outcome. Without a tuner it degrades to Compress.
func CompressChunk(ctx *Context, src []byte) (float64, error) {
	ctx.Src = src
	tuner := ctx.TunerParams
	if tuner != nil {
		tuner.NextBlocksize(ctx)
		tuner.NextCparams(ctx)
	}
	ctime, err := Compress(ctx, src)
	if err != nil {
		return ctime, err
	}
	if tuner != nil {
		tuner.Update(ctx, ctime)
	}

	return ctime, nil
}

// Compress compresses one chunk through the context's current parameters
// and returns the compression wall time in seconds. The frame and sizes
// are left on the context for the tuner's Update.
func Compress(ctx *Context, src []byte) (float64, error) {
	if ctx.NewNthreads > 0 {
		ctx.Nthreads = ctx.NewNthreads
		ctx.NewNthreads = 0
	}
	if ctx.Typesize < 1 {
		ctx.Typesize = 1
	}

	start := time.Now()

	var frame []byte
	var err error
	if run, ok := constantRun(src, ctx.Typesize); ok {
		frame = buildHeader(ctx, len(src), flagSpecial)
		frame = append(frame, run...)
	} else {
		frame, err = compressChunk(ctx, src)
		if err != nil {
			return 0, err
		}
	}
	binary.LittleEndian.PutUint32(frame[offCBytes:], uint32(len(frame)))

	ctx.Src = src
	ctx.Dest = frame
	ctx.SourceSize = len(src)
	ctx.DestSize = len(frame)
	ctx.NChunks++

	return time.Since(start).Seconds(), nil
}

// Decompress restores a frame produced by Compress and returns the chunk
// and the decompression wall time in seconds.
func Decompress(dctx *DContext, frame []byte) ([]byte, float64, error) {
	if dctx != nil && dctx.NewNthreads > 0 {
		dctx.Nthreads = dctx.NewNthreads
		dctx.NewNthreads = 0
	}
	if len(frame) < headerLength {
		return nil, 0, fmt.Errorf("pipeline: frame shorter than header (%d bytes)", len(frame))
	}

	start := time.Now()
	dst, err := decompressChunk(frame)
	if err != nil {
		return nil, 0, err
	}

	return dst, time.Since(start).Seconds(), nil
}

// constantRun reports whether src is one element repeated, returning that
// element. Such chunks are "special": they frame to header+typesize bytes
// and carry no information worth tuning on.
func constantRun(src []byte, typesize int) ([]byte, bool) {
	if len(src) == 0 || len(src)%typesize != 0 {
		return nil, false
	}
	first := src[:typesize]
	for off := typesize; off < len(src); off += typesize {
		for j := 0; j < typesize; j++ {
			if src[off+j] != first[j] {
				return nil, false
			}
		}
	}

	return first, true
}

func buildHeader(ctx *Context, nbytes int, flags byte) []byte {
	hdr := make([]byte, headerLength, headerLength+64)
	hdr[offVersion] = frameVersion
	hdr[offCodec] = byte(ctx.Compcode)
	hdr[offClevel] = byte(ctx.Clevel)
	hdr[offFlags] = flags
	for i := 0; i < MaxFilters; i++ {
		hdr[offFilters+i] = byte(ctx.Filters[i])
		hdr[offMeta+i] = ctx.FiltersMeta[i]
	}
	binary.LittleEndian.PutUint32(hdr[offSplit:], uint32(ctx.Splitmode))
	binary.LittleEndian.PutUint32(hdr[offTypesize:], uint32(ctx.Typesize))
	binary.LittleEndian.PutUint32(hdr[offNBytes:], uint32(nbytes))

	return hdr
}

// shouldSplit resolves the context's split mode for the given codec. Auto
// splits for the byte-oriented fast codecs, matching the usual heuristic
// that lane streams help them and hurt the entropy-coded ones.
func shouldSplit(ctx *Context, n int) bool {
	if ctx.Typesize <= 1 || n%ctx.Typesize != 0 {
		return false
	}
	switch ctx.Splitmode {
	case format.SplitAlways:
		return true
	case format.SplitNever:
		return false
	default:
		return ctx.Compcode == format.CodecLZ4 ||
			ctx.Compcode == format.CodecLZ4HC ||
			ctx.Compcode == format.CodecS2
	}
}

func compressChunk(ctx *Context, src []byte) ([]byte, error) {
	filtered, scratch, err := runFilters(ctx, src)
	if scratch != nil {
		defer pool.PutChunkBuffer(scratch)
	}
	if err != nil {
		return nil, err
	}

	flags := byte(0)
	if ctx.Clevel == 0 {
		frame := buildHeader(ctx, len(src), flagStored)
		return append(frame, filtered...), nil
	}

	codec, err := compress.Lookup(ctx.Compcode)
	if err != nil {
		return nil, err
	}

	if shouldSplit(ctx, len(src)) {
		flags |= flagSplit
		frame := buildHeader(ctx, len(src), flags)
		lanes := ctx.Typesize
		streamLen := len(filtered) / lanes
		var lenbuf [4]byte
		for j := 0; j < lanes; j++ {
			part, cerr := codec.Compress(filtered[j*streamLen:(j+1)*streamLen], ctx.Clevel)
			if cerr != nil {
				return nil, cerr
			}
			binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(part)))
			frame = append(frame, lenbuf[:]...)
			frame = append(frame, part...)
		}

		return frame, nil
	}

	payload, err := codec.Compress(filtered, ctx.Clevel)
	if err != nil {
		return nil, err
	}
	frame := buildHeader(ctx, len(src), flags)

	return append(frame, payload...), nil
}

// runFilters applies the context's filter slots in order. It returns the
// filtered view and the pooled scratch buffer backing it (nil when no
// filter applies and the source is passed through).
func runFilters(ctx *Context, src []byte) ([]byte, *pool.ByteBuffer, error) {
	active := false
	for _, f := range ctx.Filters {
		if f != format.FilterNone {
			active = true
			break
		}
	}
	if !active || len(src) == 0 {
		return src, nil, nil
	}

	scratch := pool.GetChunkBuffer()
	dst := scratch.Grow(2 * len(src))
	cur := src
	out := dst[:len(src)]
	spare := dst[len(src):]
	for slot, f := range ctx.Filters {
		if f == format.FilterNone {
			continue
		}
		lane := int(ctx.FiltersMeta[slot])
		if lane == 0 {
			lane = ctx.Typesize
		}
		if err := applyFilter(f, cur, out, lane); err != nil {
			pool.PutChunkBuffer(scratch)
			return nil, nil, err
		}
		if &cur[0] == &src[0] {
			cur, out = out, spare
		} else {
			cur, out = out, cur
		}
	}

	return cur, scratch, nil
}

func decompressChunk(frame []byte) ([]byte, error) {
	hdr := frame[:headerLength]
	if hdr[offVersion] != frameVersion {
		return nil, fmt.Errorf("pipeline: unsupported frame version %d", hdr[offVersion])
	}
	codecID := format.CodecID(hdr[offCodec])
	flags := hdr[offFlags]
	typesize := int(binary.LittleEndian.Uint32(hdr[offTypesize:]))
	nbytes := int(binary.LittleEndian.Uint32(hdr[offNBytes:]))
	cbytes := int(binary.LittleEndian.Uint32(hdr[offCBytes:]))
	if cbytes != len(frame) {
		return nil, fmt.Errorf("pipeline: frame length %d does not match header %d", len(frame), cbytes)
	}
	if typesize < 1 {
		typesize = 1
	}
	payload := frame[headerLength:]

	if flags&flagSpecial != 0 {
		if len(payload) != typesize || nbytes%typesize != 0 {
			return nil, fmt.Errorf("pipeline: malformed special frame")
		}
		dst := make([]byte, nbytes)
		for off := 0; off < nbytes; off += typesize {
			copy(dst[off:], payload)
		}

		return dst, nil
	}

	var filtered []byte
	switch {
	case flags&flagStored != 0:
		if len(payload) != nbytes {
			return nil, fmt.Errorf("pipeline: stored frame length mismatch")
		}
		filtered = append([]byte(nil), payload...)
	case flags&flagSplit != 0:
		codec, err := compress.Lookup(codecID)
		if err != nil {
			return nil, err
		}
		streamLen := nbytes / typesize
		filtered = make([]byte, 0, nbytes)
		for j := 0; j < typesize; j++ {
			if len(payload) < 4 {
				return nil, fmt.Errorf("pipeline: truncated split frame")
			}
			partLen := int(binary.LittleEndian.Uint32(payload))
			payload = payload[4:]
			if len(payload) < partLen {
				return nil, fmt.Errorf("pipeline: truncated split frame")
			}
			part, derr := codec.Decompress(payload[:partLen], streamLen)
			if derr != nil {
				return nil, derr
			}
			filtered = append(filtered, part...)
			payload = payload[partLen:]
		}
	default:
		codec, err := compress.Lookup(codecID)
		if err != nil {
			return nil, err
		}
		part, derr := codec.Decompress(payload, nbytes)
		if derr != nil {
			return nil, derr
		}
		filtered = part
	}

	// Undo filters in reverse slot order.
	dst := make([]byte, nbytes)
	cur := filtered
	out := dst
	applied := false
	for slot := MaxFilters - 1; slot >= 0; slot-- {
		f := format.Filter(hdr[offFilters+slot])
		if f == format.FilterNone {
			continue
		}
		lane := int(hdr[offMeta+slot])
		if lane == 0 {
			lane = typesize
		}
		if applied {
			cur, out = out, cur
		}
		if err := undoFilter(f, cur, out, lane); err != nil {
			return nil, err
		}
		applied = true
	}
	if !applied {
		return filtered, nil
	}

	return out, nil
}
