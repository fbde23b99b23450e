package btune

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/btune-go/btune/format"
	"github.com/btune-go/btune/internal/options"
)

// Behaviour controls how many tuning cycles of each kind run before the
// tuner settles.
type Behaviour struct {
	// NWaitsBeforeReadapt is the number of chunks emitted at the current
	// best between readapt cycles.
	NWaitsBeforeReadapt int
	// NSoftsBeforeHard is the number of soft readapts between hard ones.
	NSoftsBeforeHard int
	// NHardsBeforeStop is the number of hard readapts before the repeat
	// policy applies.
	NHardsBeforeStop int
	// RepeatMode decides what happens after the last hard readapt.
	RepeatMode format.RepeatMode
}

// Config is the tuner configuration. It is immutable after Init except for
// the environment overrides applied there.
type Config struct {
	// PerfMode selects which times enter the score. PerfAuto resolves
	// from BTUNE_PERF_MODE at Init, defaulting to PerfComp.
	PerfMode format.PerfMode
	// Tradeoff balances speed (0) against compression ratio (1).
	Tradeoff float64
	// Bandwidth is the reference I/O bandwidth in KB/s that converts
	// compressed bytes into time in the score.
	Bandwidth int
	Behaviour Behaviour
	// CparamsHint seeds the best parameters from the compression context
	// instead of the defaults.
	CparamsHint bool
	// UseInference bounds model-driven proposals: -1 every chunk, 0
	// never, k>0 the first k chunks.
	UseInference int
	// ModelsDir is the directory holding classifier artifacts; empty
	// disables inference.
	ModelsDir string

	// TraceWriter receives the per-step trace table when tracing is
	// enabled through BTUNE_TRACE. Defaults to stdout.
	TraceWriter io.Writer
}

// Option configures a Config.
type Option = options.Option[*Config]

// NewConfig returns the default configuration with opts applied.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		PerfMode:  format.PerfAuto,
		Tradeoff:  0.5,
		Bandwidth: 10 * format.KB * format.KB, // 10 GB/s
		Behaviour: Behaviour{
			NWaitsBeforeReadapt: 1,
			NSoftsBeforeHard:    5,
			NHardsBeforeStop:    10,
			RepeatMode:          format.RepeatStop,
		},
		UseInference: -1,
	}
}

// WithPerfMode sets the performance mode.
func WithPerfMode(mode format.PerfMode) Option {
	return options.NoError(func(cfg *Config) {
		cfg.PerfMode = mode
	})
}

// WithTradeoff sets the speed/ratio tradeoff in [0, 1].
func WithTradeoff(tradeoff float64) Option {
	return options.New(func(cfg *Config) error {
		if tradeoff < 0 || tradeoff > 1 {
			return fmt.Errorf("tradeoff %g out of range [0, 1]", tradeoff)
		}
		cfg.Tradeoff = tradeoff

		return nil
	})
}

// WithBandwidth sets the reference bandwidth in KB/s.
func WithBandwidth(kbps int) Option {
	return options.New(func(cfg *Config) error {
		if kbps <= 0 {
			return fmt.Errorf("bandwidth %d must be positive", kbps)
		}
		cfg.Bandwidth = kbps

		return nil
	})
}

// WithBehaviour sets the readapt cycle counts and repeat mode.
func WithBehaviour(behaviour Behaviour) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Behaviour = behaviour
	})
}

// WithCparamsHint seeds the search from the caller's current parameters.
func WithCparamsHint(hint bool) Option {
	return options.NoError(func(cfg *Config) {
		cfg.CparamsHint = hint
	})
}

// WithUseInference bounds model-driven proposals.
func WithUseInference(n int) Option {
	return options.NoError(func(cfg *Config) {
		cfg.UseInference = n
	})
}

// WithModelsDir points the inference front-end at classifier artifacts.
func WithModelsDir(dir string) Option {
	return options.NoError(func(cfg *Config) {
		cfg.ModelsDir = dir
	})
}

// WithTraceWriter redirects trace output.
func WithTraceWriter(w io.Writer) Option {
	return options.NoError(func(cfg *Config) {
		cfg.TraceWriter = w
	})
}

// Tradeoff band edges. The bands pick the codec candidates and the level
// caps: LOW leans on fast codecs, HIGH on the entropy-coded ones.
const (
	lowBandMax      = 1.0 / 3.0
	balancedBandMax = 2.0 / 3.0
)

type band uint8

const (
	bandLow band = iota
	bandBalanced
	bandHigh
)

func (c *Config) band() band {
	switch {
	case c.Tradeoff <= lowBandMax:
		return bandLow
	case c.Tradeoff <= balancedBandMax:
		return bandBalanced
	default:
		return bandHigh
	}
}

// applyEnv applies the BTUNE_* environment overrides. Invalid values warn
// on stderr and fall back to the configured or default value; they are
// never fatal.
func (c *Config) applyEnv() {
	if c.PerfMode == format.PerfAuto {
		switch mode := os.Getenv("BTUNE_PERF_MODE"); mode {
		case "COMP", "":
			c.PerfMode = format.PerfComp
		case "DECOMP":
			c.PerfMode = format.PerfDecomp
		case "BALANCED":
			c.PerfMode = format.PerfBalanced
		default:
			fmt.Fprintf(os.Stderr, "WARNING: unsupported %s performance mode, default to COMP\n", mode)
			c.PerfMode = format.PerfComp
		}
	}

	if env := os.Getenv("BTUNE_TRADEOFF"); env != "" {
		tradeoff, err := strconv.ParseFloat(env, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: invalid BTUNE_TRADEOFF %q: %v\n", env, err)
		} else {
			c.Tradeoff = tradeoff
		}
	}
	if c.Tradeoff < 0 || c.Tradeoff > 1 {
		def := defaultConfig().Tradeoff
		fmt.Fprintf(os.Stderr,
			"WARNING: unsupported %g compression tradeoff, it must be between 0. and 1., default to %g\n",
			c.Tradeoff, def)
		c.Tradeoff = def
	}

	if env := os.Getenv("BTUNE_MODELS_DIR"); env != "" {
		c.ModelsDir = env
	}
	if env := os.Getenv("BTUNE_USE_INFERENCE"); env != "" {
		n, err := strconv.Atoi(env)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: invalid BTUNE_USE_INFERENCE %q: %v\n", env, err)
		} else {
			c.UseInference = n
		}
	}
}

// traceEnabled reports whether the one-line-per-step trace is on.
func traceEnabled() bool {
	return os.Getenv("BTUNE_TRACE") != ""
}
