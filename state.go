package btune

import (
	"github.com/btune-go/btune/format"
)

func (t *Tuner) stateName() string {
	switch t.state {
	case stateCodecFilter:
		return "CODEC_FILTER"
	case stateShuffleSize:
		return "SHUFFLE_SIZE"
	case stateThreads:
		if t.threadsForComp {
			return "THREADS_COMP"
		}
		return "THREADS_DECOMP"
	case stateClevel:
		return "CLEVEL"
	case stateMemcpy:
		return "MEMCPY"
	case stateWaiting:
		return "WAITING"
	case stateStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// minimumHards is the number of hard readapts that only exist to seed the
// best tuple: one, unless the caller supplied a hint.
func (t *Tuner) minimumHards() int {
	if t.config.CparamsHint {
		return 0
	}
	return 1
}

// hasEndedClevel reports whether the next clevel step would leave the
// candidate range, which flips the walking direction.
func (t *Tuner) hasEndedClevel() bool {
	if t.best.IncreasingClevel {
		return t.clevelIdx+t.stepSize >= len(t.clevels)
	}
	return t.clevelIdx-t.stepSize < 0
}

func hasEndedShuffle(best *Cparams) bool {
	minShuffle := format.MinBitShuffle
	if best.Filter == format.FilterShuffle {
		minShuffle = format.MinShuffle
	}
	return (best.IncreasingShuffle && best.Shufflesize == format.MaxShuffle) ||
		(!best.IncreasingShuffle && best.Shufflesize == minShuffle)
}

func (t *Tuner) hasEndedThreads() bool {
	nthreads := t.best.NthreadsComp
	if !t.threadsForComp {
		nthreads = t.best.NthreadsDecomp
	}
	return (t.best.IncreasingNthreads && nthreads == t.maxThreads) ||
		(!t.best.IncreasingNthreads && nthreads == minThreads)
}

// initSoft starts a soft readapt: small steps from the CLEVEL state.
func (t *Tuner) initSoft() {
	if t.hasEndedClevel() {
		t.best.IncreasingClevel = !t.best.IncreasingClevel
	}
	t.state = stateClevel
	t.stepSize = softStepSize
	t.readaptFrom = readaptSoft
}

// initHard starts a hard readapt: big steps from the CODEC_FILTER state.
func (t *Tuner) initHard() {
	t.state = stateCodecFilter
	t.stepSize = hardStepSize
	t.readaptFrom = readaptHard
	t.threadsForComp = t.config.PerfMode != format.PerfDecomp
	if hasEndedShuffle(t.best) {
		t.best.IncreasingShuffle = !t.best.IncreasingShuffle
	}
}

// initWithoutHards picks the starting state when no hard readapt is
// configured. Fallthrough order: hards, then softs, then stop.
func (t *Tuner) initWithoutHards() {
	behaviour := t.config.Behaviour
	switch {
	case behaviour.RepeatMode == format.RepeatAll &&
		behaviour.NHardsBeforeStop > t.minimumHards():
		t.initHard()
	case behaviour.RepeatMode != format.RepeatStop &&
		behaviour.NSoftsBeforeHard > 0:
		t.initSoft()
	case t.minimumHards() == 0 && behaviour.NSoftsBeforeHard > 0:
		t.initSoft()
	default:
		t.state = stateStop
		t.readaptFrom = readaptWait
	}
	t.isRepeating = true
}

// processWaiting decides what follows a finished readapt or wait.
func (t *Tuner) processWaiting() {
	behaviour := t.config.Behaviour
	minimumHards := t.minimumHards()

	switch t.readaptFrom {
	case readaptHard:
		t.nhards++
		// Last hard: the initial readapts completed.
		if behaviour.NHardsBeforeStop == minimumHards ||
			t.nhards%behaviour.NHardsBeforeStop == 0 {
			t.isRepeating = true
			switch {
			// There are softs (repeat mode not stop).
			case behaviour.NSoftsBeforeHard > 0 &&
				behaviour.RepeatMode != format.RepeatStop:
				t.initSoft()
			// No softs (repeat mode soft).
			case behaviour.RepeatMode != format.RepeatAll:
				t.state = stateStop
			// No softs, there are waits (repeat mode all).
			case behaviour.NWaitsBeforeReadapt > 0:
				t.state = stateWaiting
				t.readaptFrom = readaptWait
			// No softs, no waits and there are hards (repeat mode all).
			case behaviour.NHardsBeforeStop > minimumHards:
				t.initHard()
			// No softs, no waits, no hards (repeat mode all).
			default:
				t.state = stateStop
			}
		} else if behaviour.NSoftsBeforeHard > 0 {
			// Not the last hard; there are soft readapts.
			t.initSoft()
		} else if behaviour.NWaitsBeforeReadapt > 0 {
			// No softs but there are waits.
			t.state = stateWaiting
			t.readaptFrom = readaptWait
		} else {
			// No softs, no waits.
			t.initHard()
		}

	case readaptSoft:
		t.nsofts++
		t.readaptFrom = readaptWait
		if behaviour.NWaitsBeforeReadapt != 0 {
			break
		}
		lastSoft := behaviour.NSoftsBeforeHard == 0 ||
			t.nsofts%behaviour.NSoftsBeforeHard == 0
		switch {
		case lastSoft &&
			!(t.isRepeating && behaviour.RepeatMode != format.RepeatAll) &&
			behaviour.NHardsBeforeStop > minimumHards:
			t.initHard()
		// Special: hint given, no hards, last soft, stop mode.
		case minimumHards == 0 &&
			behaviour.NHardsBeforeStop == 0 &&
			behaviour.NSoftsBeforeHard > 0 &&
			t.nsofts%behaviour.NSoftsBeforeHard == 0 &&
			behaviour.RepeatMode == format.RepeatStop:
			t.isRepeating = true
			t.state = stateStop
		default:
			t.initSoft()
		}

	case readaptWait:
		lastWait := behaviour.NWaitsBeforeReadapt == 0 ||
			(t.nwaitings != 0 && t.nwaitings%behaviour.NWaitsBeforeReadapt == 0)
		if !lastWait {
			break
		}
		lastSoft := behaviour.NSoftsBeforeHard == 0 ||
			(t.nsofts != 0 && t.nsofts%behaviour.NSoftsBeforeHard == 0)
		if lastSoft &&
			!(t.isRepeating && behaviour.RepeatMode != format.RepeatAll) &&
			behaviour.NHardsBeforeStop > minimumHards {
			t.initHard()
		} else if behaviour.NSoftsBeforeHard > 0 &&
			!(t.isRepeating && behaviour.RepeatMode == format.RepeatStop) {
			t.initSoft()
		}
	}

	// Force soft steps on the last hard.
	if t.readaptFrom == readaptHard &&
		t.nhards == t.config.Behaviour.NHardsBeforeStop-1 {
		t.stepSize = softStepSize
	}
}

// updateAux advances the state machine after a scored step. improved
// feeds the first-step direction heuristic: a state whose first probe did
// not improve walks the other way next time.
func (t *Tuner) updateAux(improved bool) {
	best := t.best
	firstTime := t.auxIndex == 1

	switch t.state {
	case stateCodecFilter:
		auxIndexMax := len(t.codecs) * len(t.filters)
		if t.splitmode == format.SplitAuto {
			auxIndexMax *= 2
		}
		if t.auxIndex >= auxIndexMax {
			t.auxIndex = 0

			if enableShuffleSize {
				shufflesize := best.Shufflesize
				isPower2 := shufflesize&(shufflesize-1) == 0
				if best.Filter != format.FilterNone && isPower2 {
					t.state = stateShuffleSize
				} else {
					t.state = stateThreads
				}
			} else if enableThreads {
				t.state = stateThreads
			} else {
				t.state = stateClevel
			}

			// Thread tuning needs more than one worker to play with.
			if t.state == stateThreads && t.maxThreads == 1 {
				t.state = stateClevel
				if t.hasEndedClevel() {
					best.IncreasingClevel = !best.IncreasingClevel
				}
			}
			// Control direction parameters.
			if enableShuffleSize && t.state == stateShuffleSize {
				if hasEndedShuffle(best) {
					best.IncreasingShuffle = !best.IncreasingShuffle
				}
			} else if t.state == stateThreads {
				if t.hasEndedThreads() {
					best.IncreasingNthreads = !best.IncreasingNthreads
				}
			}
		}

	case stateShuffleSize:
		if !improved && firstTime {
			best.IncreasingShuffle = !best.IncreasingShuffle
		}
		// Cannot change the parameter, or it is not improving.
		if hasEndedShuffle(best) || (!improved && !firstTime) {
			t.auxIndex = 0
			if enableThreads {
				t.state = stateThreads
			} else {
				t.state = stateClevel
			}
			if t.state == stateThreads && t.maxThreads == 1 {
				t.state = stateClevel
				if t.hasEndedClevel() {
					best.IncreasingClevel = !best.IncreasingClevel
				}
			} else if t.hasEndedThreads() {
				best.IncreasingNthreads = !best.IncreasingNthreads
			}
		}

	case stateThreads:
		firstTime = t.auxIndex%maxStateThreads == 1
		if !improved && firstTime {
			best.IncreasingNthreads = !best.IncreasingNthreads
		}
		if t.hasEndedThreads() || (!improved && !firstTime) {
			if t.config.PerfMode == format.PerfBalanced {
				// Switch the axis to decompression threads once.
				if t.auxIndex < maxStateThreads {
					t.threadsForComp = !t.threadsForComp
					t.auxIndex = maxStateThreads
					if t.hasEndedThreads() {
						best.IncreasingNthreads = !best.IncreasingNthreads
					}
				}
			} else {
				t.auxIndex = maxStateThreads + 1
			}
			if t.auxIndex > maxStateThreads {
				t.auxIndex = 0
				t.state = stateClevel
				if t.hasEndedClevel() {
					best.IncreasingClevel = !best.IncreasingClevel
				}
			}
		}

	case stateClevel:
		if !improved && firstTime {
			best.IncreasingClevel = !best.IncreasingClevel
		}
		if t.hasEndedClevel() || (!improved && !firstTime) {
			t.auxIndex = 0
			if enableMemcpy {
				t.state = stateMemcpy
			} else {
				t.state = stateWaiting
			}
		}

	case stateMemcpy:
		t.auxIndex = 0
		t.state = stateWaiting

	default:
	}

	if t.state == stateWaiting {
		t.processWaiting()
	}
}
