package abc

import (
	"log/slog"
	"runtime"
	"strconv"

	"github.com/ygrebnov/errorc"

	"github.com/hiveopt/abc/metrics"
)

// config holds Hive tuning knobs set through options.
type config struct {
	// Threads is the number of pool goroutines used for population
	// construction and for runs.
	// Default: runtime.NumCPU().
	Threads int

	// Scale converts population fitnesses into observer selection weights.
	// Default: Proportionate().
	Scale ScalingFunction

	// Seed seeds the swarm's random source when Seeded is set; otherwise the
	// source is seeded from the global generator.
	Seed   int64
	Seeded bool

	// StreamBufferSize is the buffer of the improvements channel returned by
	// Stream.
	// Default: 16.
	StreamBufferSize int

	// Logger receives debug-level engine events.
	// Default: a discard logger.
	Logger *slog.Logger

	// Metrics provides the engine's instruments.
	// Default: metrics.NewNoopProvider().
	Metrics metrics.Provider
}

// defaultConfig centralizes default values for config.
func defaultConfig() config {
	return config{
		Threads:          runtime.NumCPU(),
		Scale:            Proportionate(),
		StreamBufferSize: 16,
		Logger:           slog.New(slog.DiscardHandler),
		Metrics:          metrics.NewNoopProvider(),
	}
}

// Option configures a Hive. Options returning an error abort New.
type Option func(*config) error

// WithThreads sets the number of pool goroutines (must be > 0).
func WithThreads(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(ErrInvalidConfig,
				errorc.String("threads", strconv.Itoa(n)),
				errorc.String("", "WithThreads requires n > 0"))
		}
		cfg.Threads = n
		return nil
	}
}

// WithScaling sets the observer selection scaling function.
func WithScaling(scale ScalingFunction) Option {
	return func(cfg *config) error {
		if scale == nil {
			return errorc.With(ErrInvalidConfig,
				errorc.String("", "WithScaling requires a non-nil function"))
		}
		cfg.Scale = scale
		return nil
	}
}

// WithSeed fixes the swarm's random source, making observer selection
// deterministic. Useful in tests.
func WithSeed(seed int64) Option {
	return func(cfg *config) error {
		cfg.Seed = seed
		cfg.Seeded = true
		return nil
	}
}

// WithStreamBuffer sets the buffer of the improvements channel (default 16).
func WithStreamBuffer(size int) Option {
	return func(cfg *config) error {
		if size < 0 {
			return errorc.With(ErrInvalidConfig,
				errorc.String("", "WithStreamBuffer requires size >= 0"))
		}
		cfg.StreamBufferSize = size
		return nil
	}
}

// WithLogger sets the logger for debug-level engine events.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			return errorc.With(ErrInvalidConfig,
				errorc.String("", "WithLogger requires a non-nil logger"))
		}
		cfg.Logger = logger
		return nil
	}
}

// WithMetrics sets the metrics provider for the engine's instruments.
func WithMetrics(provider metrics.Provider) Option {
	return func(cfg *config) error {
		if provider == nil {
			return errorc.With(ErrInvalidConfig,
				errorc.String("", "WithMetrics requires a non-nil provider"))
		}
		cfg.Metrics = provider
		return nil
	}
}
