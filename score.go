package btune

import (
	"fmt"
	"os"

	"github.com/btune-go/btune/format"
)

// scoreFunction reduces one probe to a scalar: time spent compressing,
// transferring (compressed KB over the reference bandwidth), and, when the
// performance mode cares, decompressing. Lower is better.
func (t *Tuner) scoreFunction(ctime float64, cbytes int, dtime float64) float64 {
	reduced := float64(cbytes) / float64(format.KB) / float64(t.config.Bandwidth)
	switch t.config.PerfMode {
	case format.PerfComp:
		return ctime + reduced
	case format.PerfDecomp:
		return reduced + dtime
	case format.PerfBalanced:
		return ctime + reduced + dtime
	default:
		fmt.Fprintln(os.Stderr, "WARNING: unknown performance mode")
		return -1
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// hasImproved decides whether a candidate beats the current best given the
// tradeoff band. scoreCoef is best.Score/new.Score, cratioCoef is
// new.Cratio/best.Cratio; both >1 means strictly better on that axis.
// The lower bands accept score/ratio trades, the high band only a strict
// ratio win. Ties never count as improvements.
func (t *Tuner) hasImproved(scoreCoef, cratioCoef float64) bool {
	switch t.config.band() {
	case bandLow:
		return (cratioCoef > 1 && scoreCoef > 1) ||
			(cratioCoef > 0.5 && scoreCoef > 2) ||
			(cratioCoef > 0.67 && scoreCoef > 1.3) ||
			(cratioCoef > 2 && scoreCoef > 0.7)
	case bandBalanced:
		return (cratioCoef > 1 && scoreCoef > 1) ||
			(cratioCoef > 1.1 && scoreCoef > 0.8) ||
			(cratioCoef > 1.3 && scoreCoef > 0.5)
	default:
		return cratioCoef > 1
	}
}
