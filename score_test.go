package btune

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/btune-go/btune/format"
)

func TestScoreFunction(t *testing.T) {
	// 2048 compressed bytes over 1 MB/s cost exactly 2/1024 seconds.
	const (
		cbytes  = 2048
		ctime   = 0.5
		dtime   = 0.25
		reduced = 2.0 / 1024.0
	)

	tests := []struct {
		mode format.PerfMode
		want float64
	}{
		{mode: format.PerfComp, want: ctime + reduced},
		{mode: format.PerfDecomp, want: reduced + dtime},
		{mode: format.PerfBalanced, want: ctime + reduced + dtime},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			tuner := &Tuner{config: Config{PerfMode: tt.mode, Bandwidth: format.KB}}
			require.Equal(t, tt.want, tuner.scoreFunction(ctime, cbytes, dtime))
		})
	}
}

func TestScoreFunction_HigherBandwidthScoresLower(t *testing.T) {
	slow := &Tuner{config: Config{PerfMode: format.PerfComp, Bandwidth: format.KB}}
	fast := &Tuner{config: Config{PerfMode: format.PerfComp, Bandwidth: 100 * format.KB}}
	require.Greater(t,
		slow.scoreFunction(0.1, 1<<20, 0),
		fast.scoreFunction(0.1, 1<<20, 0))
}

func TestMean(t *testing.T) {
	require.Equal(t, 2.0, mean([]float64{1, 2, 3}))
	require.Equal(t, 5.0, mean([]float64{5}))
}

func TestHasImproved(t *testing.T) {
	tests := []struct {
		name       string
		tradeoff   float64
		scoreCoef  float64
		cratioCoef float64
		want       bool
	}{
		{name: "low: both better", tradeoff: 0.1, scoreCoef: 1.01, cratioCoef: 1.01, want: true},
		{name: "low: much faster, half ratio", tradeoff: 0.1, scoreCoef: 2.1, cratioCoef: 0.6, want: true},
		{name: "low: faster, mild ratio loss", tradeoff: 0.1, scoreCoef: 1.31, cratioCoef: 0.7, want: true},
		{name: "low: double ratio, slightly slower", tradeoff: 0.1, scoreCoef: 0.71, cratioCoef: 2.1, want: true},
		{name: "low: tie", tradeoff: 0.1, scoreCoef: 1.0, cratioCoef: 1.0, want: false},
		{name: "low: slower and worse", tradeoff: 0.1, scoreCoef: 0.9, cratioCoef: 0.9, want: false},

		{name: "balanced: both better", tradeoff: 0.5, scoreCoef: 1.01, cratioCoef: 1.01, want: true},
		{name: "balanced: better ratio, slightly slower", tradeoff: 0.5, scoreCoef: 0.81, cratioCoef: 1.11, want: true},
		{name: "balanced: much better ratio, half speed", tradeoff: 0.5, scoreCoef: 0.51, cratioCoef: 1.31, want: true},
		{name: "balanced: tie", tradeoff: 0.5, scoreCoef: 1.0, cratioCoef: 1.0, want: false},
		{name: "balanced: ratio loss", tradeoff: 0.5, scoreCoef: 2.0, cratioCoef: 0.9, want: false},

		{name: "high: ratio win", tradeoff: 0.9, scoreCoef: 0.1, cratioCoef: 1.01, want: true},
		{name: "high: ratio tie", tradeoff: 0.9, scoreCoef: 10, cratioCoef: 1.0, want: false},
		{name: "high: ratio loss", tradeoff: 0.9, scoreCoef: 10, cratioCoef: 0.99, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuner := &Tuner{config: Config{Tradeoff: tt.tradeoff}}
			require.Equal(t, tt.want, tuner.hasImproved(tt.scoreCoef, tt.cratioCoef))
		})
	}
}
