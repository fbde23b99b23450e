package btune

import "github.com/btune-go/btune/format"

// Cparams is one candidate combination of compression parameters together
// with the measurements of its last probe.
type Cparams struct {
	Compcode       format.CodecID
	Filter         format.Filter
	Splitmode      format.SplitMode
	Clevel         int
	Blocksize      int
	Shufflesize    int
	NthreadsComp   int
	NthreadsDecomp int

	// Direction flags: which way the next step in each state walks.
	IncreasingClevel   bool
	IncreasingBlock    bool
	IncreasingShuffle  bool
	IncreasingNthreads bool

	// Measurements from the last chunk probed with these parameters.
	Score  float64
	Cratio float64
	Ctime  float64
	Dtime  float64
}

// defaultCparams seeds both the best and the scratch tuple. The sentinel
// score/times are large enough that the first real measurement wins.
func defaultCparams() Cparams {
	return Cparams{
		Compcode:           format.CodecLZ4,
		Filter:             format.FilterShuffle,
		Splitmode:          format.SplitAlways,
		Clevel:             9,
		IncreasingBlock:    true,
		IncreasingShuffle:  true,
		IncreasingNthreads: true,
		Score:              100,
		Cratio:             1.0,
		Ctime:              100,
		Dtime:              100,
	}
}

func (c *Cparams) equals(other *Cparams) bool {
	return c.Compcode == other.Compcode &&
		c.Filter == other.Filter &&
		c.Splitmode == other.Splitmode &&
		c.Clevel == other.Clevel &&
		c.Blocksize == other.Blocksize &&
		c.Shufflesize == other.Shufflesize &&
		c.NthreadsComp == other.NthreadsComp &&
		c.NthreadsDecomp == other.NthreadsDecomp
}
