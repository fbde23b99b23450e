// Package pipeline implements the block compression pipeline the tuner
// plugs into: typed compression/decompression contexts, pre-filters, and
// chunk compress/decompress with wall-clock timing.
//
// A chunk travels filter → optional per-lane split → codec, and is framed
// with a fixed-size header so decompression needs no out-of-band state.
// Chunks made of one repeated element short-circuit to a tiny "special"
// frame of MaxOverhead+typesize bytes.
package pipeline

import "github.com/btune-go/btune/format"

// MaxFilters is the number of filter slots in a context. A single filter
// occupies the last slot; compound filters may use earlier slots.
const MaxFilters = 6

// Tuner is the plug-in contract consumed by the pipeline. The pipeline
// calls NextCparams before compressing each chunk and Update after, on one
// logical thread per context.
type Tuner interface {
	// NextBlocksize may adjust Context.Blocksize. It must exist; it may
	// be a no-op.
	NextBlocksize(cctx *Context)
	// NextCparams mutates the context's compression parameters for the
	// next chunk.
	NextCparams(cctx *Context)
	// Update records the outcome of the chunk just compressed. ctime is
	// the compression wall time in seconds.
	Update(cctx *Context, ctime float64)
	// Free releases tuner-owned state and detaches from the context.
	Free(cctx *Context)
}

// Context carries the compression-side parameters and per-chunk results.
// One context serves one stream of chunks; contexts are not shared.
type Context struct {
	Compcode    format.CodecID
	Filters     [MaxFilters]format.Filter
	FiltersMeta [MaxFilters]uint8
	Splitmode   format.SplitMode
	Clevel      int
	Blocksize   int
	Typesize    int

	// Nthreads is the current worker count; NewNthreads, when set by the
	// tuner, is applied at the start of the next Compress.
	Nthreads    int
	NewNthreads int

	// Results of the most recent Compress.
	SourceSize int
	DestSize   int
	Src        []byte
	Dest       []byte

	// NChunks counts chunks compressed through this context.
	NChunks int

	// TunerParams holds the tuner installed on this context, if any.
	TunerParams Tuner
}

// DContext carries the decompression-side state.
type DContext struct {
	Nthreads    int
	NewNthreads int
}

// NewContext returns a compression context with usable defaults.
func NewContext(typesize, nthreads int) *Context {
	if typesize < 1 {
		typesize = 1
	}
	if nthreads < 1 {
		nthreads = 1
	}

	return &Context{
		Compcode:  format.CodecLZ4,
		Splitmode: format.SplitAuto,
		Clevel:    5,
		Typesize:  typesize,
		Nthreads:  nthreads,
	}
}

// NewDContext returns a decompression context.
func NewDContext(nthreads int) *DContext {
	if nthreads < 1 {
		nthreads = 1
	}

	return &DContext{Nthreads: nthreads}
}
