// Package btune provides an adaptive tuner for block compression
// parameters.
//
// For each chunk handed to the compression pipeline the tuner proposes a
// combination of codec, filter, split mode, compression level and worker
// counts, observes the achieved ratio and timings, and refines subsequent
// proposals according to a configurable speed/ratio tradeoff.
//
// Two subsystems cooperate:
//
//   - A search state machine that sweeps codec and filter combinations,
//     then worker counts, then compression levels, in alternating hard and
//     soft readapt cycles until the configured budget is exhausted.
//   - An inference front-end that, when per-dataset classifier artifacts
//     are available, derives cheap entropy features from the chunk and
//     lets the classifier pick the parameters for the first chunks,
//     seeding the search with the most frequent prediction afterwards.
//
// # Basic Usage
//
//	cctx := pipeline.NewContext(4, 4) // typesize, nthreads
//	dctx := pipeline.NewDContext(4)
//
//	cfg, _ := btune.NewConfig(
//	    btune.WithTradeoff(0.5),
//	    btune.WithPerfMode(format.PerfBalanced),
//	)
//	tuner := btune.Init(cfg, cctx, dctx)
//	defer tuner.Free(cctx)
//
//	for _, chunk := range chunks {
//	    if _, err := pipeline.CompressChunk(cctx, chunk); err != nil {
//	        return err
//	    }
//	    store(cctx.Dest)
//	}
//
// Environment variables BTUNE_TRADEOFF, BTUNE_PERF_MODE, BTUNE_MODELS_DIR,
// BTUNE_USE_INFERENCE and BTUNE_TRACE override the configuration at Init.
package btune
