package btune

import (
	"github.com/btune-go/btune/compress"
	"github.com/btune-go/btune/entropy"
	"github.com/btune-go/btune/format"
	"github.com/btune-go/btune/pipeline"
)

// Search states, visited in this order within a readapt cycle.
type searchState uint8

const (
	stateCodecFilter searchState = iota
	stateShuffleSize
	stateThreads
	stateClevel
	stateMemcpy
	stateWaiting
	stateStop
)

// readaptType records which kind of cycle the tuner is currently in.
type readaptType uint8

const (
	readaptHard readaptType = iota
	readaptSoft
	readaptWait
)

func (r readaptType) String() string {
	switch r {
	case readaptHard:
		return "HARD"
	case readaptSoft:
		return "SOFT"
	case readaptWait:
		return "WAIT"
	default:
		return "UNKNOWN"
	}
}

// Tuning behaviour constants.
const (
	softStepSize = 1
	hardStepSize = 2
	minThreads   = 1

	// maxStateThreads marks the comp/decomp sub-phases of the THREADS
	// state; big enough that a phase can never step that many times.
	maxStateThreads = 50
)

// Disabled search states. The transition logic still supports them.
const (
	enableShuffleSize = false
	enableMemcpy      = false
	enableThreads     = true
)

// Tuner owns the adaptive search over compression parameters for one
// compression context. It is not safe for concurrent use; the pipeline
// calls it from a single logical thread per context.
type Tuner struct {
	config Config

	codecs    []format.CodecID
	filters   []format.Filter
	clevels   []int
	clevelIdx int
	splitmode format.SplitMode

	state       searchState
	readaptFrom readaptType
	stepSize    int

	nsofts     int
	nhards     int
	nwaitings  int
	stepsCount int
	auxIndex   int
	repIndex   int

	isRepeating    bool
	threadsForComp bool
	maxThreads     int
	nthreadsDecomp int

	best *Cparams
	aux  *Cparams

	currentScores  []float64
	currentCratios []float64

	dctx *pipeline.DContext

	// Inference front-end state.
	model          *inferenceModel
	inferenceCount int
	inferenceEnded bool
	histogram      []int

	// Reference feature speeds, computed lazily on first inference.
	zerosSpeed  float64
	arangeSpeed float64

	tracer *tracer
}

var _ pipeline.Tuner = (*Tuner)(nil)

// Init creates a tuner for cctx, applies environment overrides, registers
// the entropy probe codec, loads inference models when configured, and
// installs the tuner on the context. cfg may be nil for defaults; dctx may
// be nil when the caller owns no decompression context.
func Init(cfg *Config, cctx *pipeline.Context, dctx *pipeline.DContext) *Tuner {
	entropy.Register()

	t := &Tuner{}
	if cfg == nil {
		t.config = defaultConfig()
	} else {
		t.config = *cfg
	}
	t.config.applyEnv()
	t.tracer = newTracer(t.config.TraceWriter, traceEnabled())
	t.tracer.banner(&t.config)

	t.dctx = dctx
	t.zerosSpeed = -1 // computed the first time inference runs

	t.initCodecs()
	t.addFilter(format.FilterNone)
	t.addFilter(format.FilterShuffle)
	t.addFilter(format.FilterBitShuffle)
	t.splitmode = format.SplitAuto

	best := defaultCparams()
	aux := defaultCparams()
	t.best = &best
	t.aux = &aux
	t.initClevels(1, 9, 9)

	best.Compcode = t.codecs[0]
	aux.Compcode = t.codecs[0]
	if t.config.band() == bandHigh {
		best.Clevel = 8
		aux.Clevel = 8
	}
	best.Shufflesize = cctx.Typesize
	aux.Shufflesize = cctx.Typesize
	best.NthreadsComp = cctx.Nthreads
	aux.NthreadsComp = cctx.Nthreads
	if dctx != nil {
		t.maxThreads = max(cctx.Nthreads, dctx.Nthreads)
		t.nthreadsDecomp = dctx.Nthreads
	} else {
		t.maxThreads = cctx.Nthreads
		t.nthreadsDecomp = cctx.Nthreads
	}
	best.NthreadsDecomp = t.nthreadsDecomp
	aux.NthreadsDecomp = t.nthreadsDecomp

	// Rolling measurement windows; one sample per step.
	t.currentScores = make([]float64, 1)
	t.currentCratios = make([]float64, 1)

	t.threadsForComp = t.config.PerfMode != format.PerfDecomp

	if t.config.CparamsHint {
		t.extractCparams(cctx, t.best)
		t.extractCparams(cctx, t.aux)
		t.addCodec(cctx.Compcode)
		behaviour := t.config.Behaviour
		switch {
		case behaviour.NHardsBeforeStop > 0 && behaviour.NSoftsBeforeHard > 0:
			t.initSoft()
		case behaviour.NHardsBeforeStop > 0 && behaviour.NWaitsBeforeReadapt > 0:
			t.state = stateWaiting
			t.readaptFrom = readaptWait
		case behaviour.NHardsBeforeStop > 0:
			t.initHard()
		default:
			t.initWithoutHards()
		}
	} else {
		t.initHard()
		// The first hard only seeds the best tuple.
		t.config.Behaviour.NHardsBeforeStop++
	}
	if t.config.Behaviour.NHardsBeforeStop == 1 {
		t.stepSize = softStepSize
	} else {
		t.stepSize = hardStepSize
	}

	t.initModel()

	cctx.TunerParams = t

	return t
}

// Free releases the tuner's state and detaches it from the context.
func (t *Tuner) Free(cctx *pipeline.Context) {
	t.model = nil
	t.histogram = nil
	t.best = nil
	t.aux = nil
	t.currentScores = nil
	t.currentCratios = nil
	cctx.TunerParams = nil
}

// NextBlocksize exists to satisfy the tuner contract; block size is
// carried through unchanged.
func (t *Tuner) NextBlocksize(*pipeline.Context) {}

// NextCparams proposes the parameters for the next chunk, either from the
// inference front-end or from the search state machine, and writes them
// into the context.
func (t *Tuner) NextCparams(cctx *pipeline.Context) {
	var pred *prediction
	inferring := false
	if t.inferenceCount != 0 {
		if t.inferenceCount > 0 {
			t.inferenceCount--
		}
		pred = t.inferencePredict(cctx)
		inferring = pred != nil
	} else if !t.inferenceEnded {
		pred = t.mostPredicted()
		t.inferenceEnded = true
	}

	if pred != nil {
		t.codecs = []format.CodecID{pred.Codec}
		t.filters = []format.Filter{pred.Filter}
		if t.config.PerfMode == format.PerfDecomp {
			t.initClevels(pred.Clevel, pred.Clevel, pred.Clevel)
		} else {
			lo := pred.Clevel
			if lo > 1 {
				lo--
			}
			hi := pred.Clevel
			if hi < 9 {
				hi++
			}
			t.initClevels(lo, hi, pred.Clevel)
		}
	}

	if t.tracer.on && cctx.NChunks == 0 && t.state != stateStop {
		t.tracer.header()
	}

	*t.aux = *t.best
	cparams := t.aux

	switch t.state {
	case stateCodecFilter:
		// Cycle codecs, filters and splits.
		nFiltersSplits := len(t.filters) * 2
		cparams.Compcode = t.codecs[t.auxIndex/nFiltersSplits]
		cparams.Filter = t.filters[(t.auxIndex%nFiltersSplits)/2]
		if t.splitmode == format.SplitAuto {
			cparams.Splitmode = format.SplitMode(t.auxIndex%2 + 1)
		} else {
			cparams.Splitmode = t.splitmode
		}

		// The first probe of the entropy coders should not start at a
		// slow level.
		perf := t.config.PerfMode
		if (perf == format.PerfComp || perf == format.PerfBalanced) &&
			(cparams.Compcode == format.CodecZstd || cparams.Compcode == format.CodecZlib) &&
			t.nhards == 0 {
			cparams.Clevel = 3
		}
		if t.inferenceEnded {
			t.auxIndex++
		}

	case stateShuffleSize:
		t.auxIndex++
		if cparams.IncreasingShuffle {
			if cparams.Shufflesize < format.MaxShuffle {
				cparams.Shufflesize <<= 1
			}
		} else {
			minShuffle := format.MinBitShuffle
			if cparams.Filter == format.FilterShuffle {
				minShuffle = format.MinShuffle
			}
			if cparams.Shufflesize > minShuffle {
				cparams.Shufflesize >>= 1
			}
		}

	case stateThreads:
		t.auxIndex++
		nthreads := &cparams.NthreadsComp
		if !t.threadsForComp {
			nthreads = &cparams.NthreadsDecomp
		}
		if cparams.IncreasingNthreads {
			if *nthreads < t.maxThreads {
				*nthreads++
			}
		} else {
			if *nthreads > minThreads {
				*nthreads--
			}
		}

	case stateClevel:
		t.auxIndex++
		if !t.hasEndedClevel() {
			if cparams.IncreasingClevel {
				t.clevelIdx += t.stepSize
			} else {
				t.clevelIdx -= t.stepSize
			}
		}
		cparams.Clevel = t.clevels[t.clevelIdx]
		if cparams.Clevel == 9 && cparams.Compcode == format.CodecZstd {
			cparams.Clevel = 8
		}

	case stateMemcpy:
		t.auxIndex++
		cparams.Clevel = 0

	case stateWaiting:
		t.nwaitings++

	case stateStop:
		return
	}

	// An active inference proposal carries its own split mode.
	if inferring {
		cparams.Splitmode = pred.Splitmode
	}

	t.setCparams(cctx, cparams)
	if cctx.SourceSize > 0 && cctx.Blocksize > cctx.SourceSize {
		// blocksize cannot be greater than sourcesize
		cctx.Blocksize = cctx.SourceSize
	}
}

// Update records the outcome of the chunk just compressed: it measures
// decompression when the performance mode needs it, scores the probe,
// decides improvement, traces the step and advances the state machine.
func (t *Tuner) Update(cctx *pipeline.Context, ctime float64) {
	if t.state == stateStop {
		return
	}

	t.stepsCount++
	cparams := t.aux

	cbytes := cctx.DestSize
	dtime := 0.0
	pipelineOK := true

	behaviour := t.config.Behaviour
	skippedWait := t.state == stateWaiting &&
		(behaviour.NWaitsBeforeReadapt == 0 ||
			t.nwaitings%behaviour.NWaitsBeforeReadapt != 0)
	needDtime := t.config.PerfMode == format.PerfDecomp ||
		t.config.PerfMode == format.PerfBalanced
	if !skippedWait && needDtime && cctx.Dest != nil {
		dctx := t.dctx
		if dctx == nil {
			dctx = pipeline.NewDContext(t.nthreadsDecomp)
		}
		if _, dt, err := pipeline.Decompress(dctx, cctx.Dest); err != nil {
			// An uninformative step; keep tuning.
			pipelineOK = false
		} else {
			dtime = dt
		}
	}

	score := t.scoreFunction(ctime, cbytes, dtime)
	cratio := float64(cctx.SourceSize) / float64(cbytes)

	cparams.Score = score
	cparams.Cratio = cratio
	cparams.Ctime = ctime
	cparams.Dtime = dtime
	t.currentScores[t.repIndex] = score
	t.currentCratios[t.repIndex] = cratio
	t.repIndex++
	if t.repIndex < len(t.currentScores) {
		return
	}

	score = mean(t.currentScores)
	cratio = mean(t.currentCratios)
	cratioCoef := cratio / t.best.Cratio
	scoreCoef := t.best.Score / score

	var improved bool
	// In the THREADS state the improvement comes from ctime or dtime.
	if t.state == stateThreads {
		if t.threadsForComp {
			improved = ctime < t.best.Ctime
		} else {
			improved = dtime < t.best.Dtime
		}
	} else {
		improved = t.hasImproved(scoreCoef, cratioCoef)
	}
	if !pipelineOK {
		improved = false
	}

	winner := byte('-')
	// A chunk of special values can never improve the scoring.
	if cbytes <= format.MaxOverhead+cctx.Typesize {
		improved = false
		winner = 'S'
	}
	if improved {
		winner = 'W'
	}

	if !t.isRepeating {
		t.tracer.line(cparams, score, cratio, t.stateName(), t.readaptFrom.String(), winner)
	}

	if improved {
		*t.best = *cparams
	}
	t.repIndex = 0
	t.updateAux(improved)
}

// Best returns a copy of the best parameters found so far.
func (t *Tuner) Best() Cparams {
	return *t.best
}

// Stopped reports whether the search reached its terminal state.
func (t *Tuner) Stopped() bool {
	return t.state == stateStop
}

func (t *Tuner) addCodec(codec format.CodecID) {
	for _, c := range t.codecs {
		if c == codec {
			return
		}
	}
	t.codecs = append(t.codecs, codec)
}

func (t *Tuner) addFilter(filter format.Filter) {
	for _, f := range t.filters {
		if f == filter {
			return
		}
	}
	t.filters = append(t.filters, filter)
}

// initCodecs builds the codec candidate list for the configured tradeoff
// band, keeping only codecs present in the registry.
func (t *Tuner) initCodecs() {
	switch t.config.band() {
	case bandHigh:
		// Only the entropy-coded codecs are worth probing here.
		if compress.Has(format.CodecZstd) {
			t.addCodec(format.CodecZstd)
		}
		if compress.Has(format.CodecZlib) {
			t.addCodec(format.CodecZlib)
		}
	default:
		// In all other bands LZ4 is mandatory.
		t.addCodec(format.CodecLZ4)
		if t.config.band() == bandBalanced && compress.Has(format.CodecS2) {
			t.addCodec(format.CodecS2)
		}
		if t.config.PerfMode == format.PerfDecomp && compress.Has(format.CodecLZ4HC) {
			t.addCodec(format.CodecLZ4HC)
		}
	}
	if len(t.codecs) == 0 {
		t.addCodec(format.CodecLZ4)
	}
}

func (t *Tuner) initClevels(lo, hi, start int) {
	t.clevels = t.clevels[:0]
	for c := lo; c <= hi; c++ {
		t.clevels = append(t.clevels, c)
		if c == start {
			t.clevelIdx = len(t.clevels) - 1
		}
	}
	if t.best != nil {
		t.best.Clevel = start
	}
	if t.aux != nil {
		t.aux.Clevel = start
	}
}

// extractCparams seeds a tuple from the caller-supplied context.
func (t *Tuner) extractCparams(cctx *pipeline.Context, cparams *Cparams) {
	cparams.Compcode = cctx.Compcode
	cparams.Filter = cctx.Filters[pipeline.MaxFilters-1]
	cparams.Clevel = cctx.Clevel
	cparams.Splitmode = cctx.Splitmode
	cparams.Blocksize = cctx.Blocksize
	cparams.Shufflesize = cctx.Typesize
	cparams.NthreadsComp = cctx.Nthreads
	if t.dctx != nil {
		cparams.NthreadsDecomp = t.dctx.Nthreads
	} else {
		cparams.NthreadsDecomp = t.nthreadsDecomp
	}
}

// setCparams writes a candidate tuple into the compression context. The
// tradeoff band caps the effective compression level on the way through.
func (t *Tuner) setCparams(cctx *pipeline.Context, cparams *Cparams) {
	cctx.Compcode = cparams.Compcode
	for i := range cctx.Filters {
		cctx.Filters[i] = format.FilterNone
		cctx.FiltersMeta[i] = 0
	}
	cctx.Filters[pipeline.MaxFilters-1] = cparams.Filter
	// Bytedelta requires a shuffle before it.
	if cparams.Filter == format.FilterByteDelta {
		cctx.Filters[pipeline.MaxFilters-2] = format.FilterShuffle
		cctx.FiltersMeta[pipeline.MaxFilters-1] = uint8(cctx.Typesize)
	}
	cctx.Splitmode = cparams.Splitmode

	// Do not set a too large clevel for the entropy coders in the
	// balanced band, nor for anything in the high band.
	if t.config.band() == bandBalanced &&
		(cparams.Compcode == format.CodecZstd || cparams.Compcode == format.CodecZlib) &&
		cparams.Clevel >= 3 {
		cparams.Clevel = 3
	}
	if t.config.band() == bandHigh && cparams.Clevel >= 6 {
		cparams.Clevel = 6
	}
	cctx.Clevel = cparams.Clevel

	if cparams.Blocksize != 0 {
		cctx.Blocksize = cparams.Blocksize
	}
	if cparams.Shufflesize > 0 {
		cctx.Typesize = cparams.Shufflesize
	}
	cctx.NewNthreads = cparams.NthreadsComp
	if t.dctx != nil {
		t.dctx.NewNthreads = cparams.NthreadsDecomp
	} else {
		t.nthreadsDecomp = cparams.NthreadsDecomp
	}
}
