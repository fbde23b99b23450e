package btune

import (
	"fmt"
	"io"
	"os"

	"github.com/btune-go/btune/format"
)

// Version is the tuner version reported in the trace banner.
const Version = "0.1.0"

// tracer renders the one-line-per-step tuning table. It is inert unless
// enabled through BTUNE_TRACE.
type tracer struct {
	w  io.Writer
	on bool
}

func newTracer(w io.Writer, on bool) *tracer {
	if w == nil {
		w = os.Stdout
	}

	return &tracer{w: w, on: on}
}

// bandwidthString renders a KB/s bandwidth with a readable unit.
func bandwidthString(kbps int) string {
	switch {
	case kbps < format.KB:
		return fmt.Sprintf("%d KB/s", kbps)
	case kbps < format.KB*format.KB:
		return fmt.Sprintf("%d MB/s", kbps/format.KB)
	case kbps < format.KB*format.KB*format.KB:
		return fmt.Sprintf("%d GB/s", kbps/format.KB/format.KB)
	default:
		return fmt.Sprintf("%d TB/s", kbps/format.KB/format.KB/format.KB)
	}
}

// banner prints the configuration summary before the first chunk.
func (tr *tracer) banner(cfg *Config) {
	if !tr.on {
		return
	}
	fmt.Fprintln(tr.w, "-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=")
	fmt.Fprintf(tr.w, "Btune version: %s\n"+
		"Performance Mode: %s, Compression tradeoff: %f, Bandwidth: %s\n"+
		"Behaviour: Waits - %d, Softs - %d, Hards - %d, Repeat Mode - %s\n",
		Version, cfg.PerfMode, cfg.Tradeoff, bandwidthString(cfg.Bandwidth),
		cfg.Behaviour.NWaitsBeforeReadapt, cfg.Behaviour.NSoftsBeforeHard,
		cfg.Behaviour.NHardsBeforeStop, cfg.Behaviour.RepeatMode)
}

// header prints the trace table column names.
func (tr *tracer) header() {
	if !tr.on {
		return
	}
	fmt.Fprint(tr.w, "|    Codec   | Filter | Split | C.Level | Blocksize | Shufflesize | C.Threads | D.Threads |"+
		"   Score   |  C.Ratio   |   Btune State   | Readapt | Winner\n")
}

// line prints one scored step.
func (tr *tracer) line(cparams *Cparams, score, cratio float64, state, readapt string, winner byte) {
	if !tr.on {
		return
	}
	split := 0
	if cparams.Splitmode == format.SplitAlways {
		split = 1
	}
	fmt.Fprintf(tr.w, "| %10s | %6d | %5d | %7d | %9d | %11d | %9d | %9d | %9.3g | %9.3gx | %15s | %7s | %c\n",
		cparams.Compcode, cparams.Filter, split, cparams.Clevel,
		cparams.Blocksize/format.KB, cparams.Shufflesize,
		cparams.NthreadsComp, cparams.NthreadsDecomp,
		score, cratio, state, readapt, winner)
}

// inference prints one model-driven proposal.
func (tr *tracer) inference(category int, pred *prediction) {
	if !tr.on {
		return
	}
	fmt.Fprintf(tr.w, "Inference category=%d codec=%s filter=%s clevel=%d splitmode=%s\n",
		category, pred.Codec, pred.Filter, pred.Clevel, pred.Splitmode)
}
