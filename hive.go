package abc

import (
	"strconv"

	"github.com/ygrebnov/errorc"
)

// Hive holds the algorithm parameters and the solution capability set.
// Configure it with New, then call Swarm to build the initial population and
// obtain a runnable engine.
type Hive[S any] struct {
	explorer  Explorer[S]
	workers   int
	observers int
	retries   int

	cfg config
}

// New creates a Hive.
//
//   - workers is the number of population slots maintained at a time; must be
//     at least 1.
//   - observers is the number of selection-driven refinements per round; may
//     be 0, in which case the observer phase is skipped and a round completes
//     at the end of the worker phase.
//   - retries is the number of times a slot can be refined without improvement
//     before it is considered a local maximum and reinitialized.
func New[S any](explorer Explorer[S], workers, observers, retries int, opts ...Option) (*Hive[S], error) {
	if explorer == nil {
		return nil, errorc.With(ErrInvalidConfig,
			errorc.String("", "explorer must be non-nil"))
	}
	if workers < 1 {
		return nil, errorc.With(ErrInvalidConfig,
			errorc.String("workers", strconv.Itoa(workers)),
			errorc.String("", "hive must have at least one worker"))
	}
	if observers < 0 {
		return nil, errorc.With(ErrInvalidConfig,
			errorc.String("observers", strconv.Itoa(observers)))
	}
	if retries < 0 {
		return nil, errorc.With(ErrInvalidConfig,
			errorc.String("retries", strconv.Itoa(retries)))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Hive[S]{
		explorer:  explorer,
		workers:   workers,
		observers: observers,
		retries:   retries,
		cfg:       cfg,
	}, nil
}

// Swarm activates the hive: it constructs the initial population in parallel
// and returns the runnable engine bound to it. If any construction fails, no
// partial population is left behind and the error is returned.
func (h *Hive[S]) Swarm() (*Swarm[S], error) {
	return newSwarm(h)
}
