package format

type (
	CodecID    uint8
	Filter     uint8
	SplitMode  int32
	PerfMode   uint8
	RepeatMode uint8
)

const (
	CodecLZ4   CodecID = 0x1 // CodecLZ4 is the fast LZ4 block codec.
	CodecLZ4HC CodecID = 0x2 // CodecLZ4HC is LZ4 with high-compression matching.
	CodecZstd  CodecID = 0x3 // CodecZstd is Zstandard.
	CodecZlib  CodecID = 0x4 // CodecZlib is zlib/deflate.
	CodecS2    CodecID = 0x5 // CodecS2 is the S2 fast byte-oriented codec.

	// CodecEntropyProbe is the reserved id of the entropy probe, a lossy
	// estimator that reports a compressed size without producing bytes.
	CodecEntropyProbe CodecID = 244

	FilterNone       Filter = 0x0 // FilterNone applies no pre-transform.
	FilterShuffle    Filter = 0x1 // FilterShuffle transposes bytes by type-size lane.
	FilterBitShuffle Filter = 0x2 // FilterBitShuffle transposes at bit granularity.
	FilterByteDelta  Filter = 0x3 // FilterByteDelta subtracts the previous lane byte.

	SplitAuto   SplitMode = 0x0 // SplitAuto lets the tuner probe both split settings.
	SplitAlways SplitMode = 0x1 // SplitAlways compresses each type-size lane separately.
	SplitNever  SplitMode = 0x2 // SplitNever compresses the chunk as a single stream.

	PerfComp     PerfMode = 0x0 // PerfComp scores compression time only.
	PerfDecomp   PerfMode = 0x1 // PerfDecomp scores decompression time only.
	PerfBalanced PerfMode = 0x2 // PerfBalanced scores both.
	PerfAuto     PerfMode = 0x3 // PerfAuto resolves from the environment at init.

	RepeatAll  RepeatMode = 0x0 // RepeatAll keeps cycling hards and softs.
	RepeatSoft RepeatMode = 0x1 // RepeatSoft keeps cycling softs only.
	RepeatStop RepeatMode = 0x2 // RepeatStop stops after the configured cycles.
)

// Shared size constants for chunk framing and shuffle bounds.
const (
	KB = 1024

	// MaxOverhead is the fixed per-chunk header budget. A chunk whose
	// compressed size is at most MaxOverhead+typesize holds only special
	// (constant-run) values.
	MaxOverhead = 32

	MinShuffle    = 2  // smallest shuffle lane width for FilterShuffle
	MinBitShuffle = 1  // smallest shuffle lane width for FilterBitShuffle
	MaxShuffle    = 16 // largest shuffle lane width probed
)

func (c CodecID) String() string {
	switch c {
	case CodecLZ4:
		return "lz4"
	case CodecLZ4HC:
		return "lz4hc"
	case CodecZstd:
		return "zstd"
	case CodecZlib:
		return "zlib"
	case CodecS2:
		return "s2"
	case CodecEntropyProbe:
		return "entropy_probe"
	default:
		return "unknown"
	}
}

func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "nofilter"
	case FilterShuffle:
		return "shuffle"
	case FilterBitShuffle:
		return "bitshuffle"
	case FilterByteDelta:
		return "bytedelta"
	default:
		return "unknown"
	}
}

func (s SplitMode) String() string {
	switch s {
	case SplitAuto:
		return "auto"
	case SplitAlways:
		return "always"
	case SplitNever:
		return "never"
	default:
		return "unknown"
	}
}

func (p PerfMode) String() string {
	switch p {
	case PerfComp:
		return "COMP"
	case PerfDecomp:
		return "DECOMP"
	case PerfBalanced:
		return "BALANCED"
	case PerfAuto:
		return "AUTO"
	default:
		return "UNKNOWN"
	}
}

func (r RepeatMode) String() string {
	switch r {
	case RepeatAll:
		return "REPEAT_ALL"
	case RepeatSoft:
		return "REPEAT_SOFT"
	case RepeatStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}
