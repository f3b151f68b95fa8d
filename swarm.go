package abc

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/ygrebnov/errorc"

	"github.com/hiveopt/abc/metrics"
)

// slot is one population member behind its own lock, allowing refinements of
// different slots to proceed fully in parallel.
type slot[S any] struct {
	mu sync.RWMutex
	wc workingCandidate[S]
}

// Swarm executes the algorithm, maintaining the population, the best
// candidate seen so far, and the installed task generator of the active run.
// All methods are safe for concurrent use.
type Swarm[S any] struct {
	hive *Hive[S]

	working []slot[S]

	best struct {
		mu sync.Mutex
		c  Candidate[S]
	}

	// builderMu serializes Fresh calls so implementations may keep mutable
	// construction state. Explore calls are never serialized.
	builderMu sync.Mutex

	tasks struct {
		mu  sync.Mutex
		gen *taskGenerator
	}

	stream struct {
		mu   sync.Mutex
		ch   chan Candidate[S]
		ctx  context.Context
		quit <-chan struct{}
	}

	rng struct {
		mu sync.Mutex
		r  *rand.Rand
	}

	// background run coordination
	bg    sync.WaitGroup
	errMu sync.Mutex
	err   error

	tokens       metrics.Counter
	improvements metrics.Counter
	expirations  metrics.Counter
	exploreTime  metrics.Histogram
	bestFitness  metrics.Gauge
}

func newSwarm[S any](h *Hive[S]) (*Swarm[S], error) {
	s := &Swarm[S]{hive: h}

	seed := h.cfg.Seed
	if !h.cfg.Seeded {
		seed = rand.Int63()
	}
	s.rng.r = rand.New(rand.NewSource(seed))

	m := h.cfg.Metrics
	s.tokens = m.Counter("abc.tokens",
		metrics.WithDescription("work tokens executed"))
	s.improvements = m.Counter("abc.improvements",
		metrics.WithDescription("accepted best-candidate improvements"))
	s.expirations = m.Counter("abc.expirations",
		metrics.WithDescription("candidates reinitialized after exhausting retries"))
	s.exploreTime = m.Histogram("abc.explore_seconds",
		metrics.WithUnit("seconds"))
	s.bestFitness = m.Gauge("abc.best_fitness")

	candidates := make([]Candidate[S], h.workers)
	p := pool.New().WithMaxGoroutines(h.cfg.Threads).WithErrors().WithFirstError()
	for i := 0; i < h.workers; i++ {
		p.Go(func() error {
			return recovered("fresh", func() error {
				c, err := s.fresh()
				if err != nil {
					return err
				}
				candidates[i] = c
				return nil
			})
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	s.best.c = candidates[0]
	for _, c := range candidates[1:] {
		if c.Fitness > s.best.c.Fitness {
			s.best.c = c
		}
	}
	s.bestFitness.Set(s.best.c.Fitness)

	s.working = make([]slot[S], h.workers)
	for i, c := range candidates {
		s.working[i].wc = newWorkingCandidate(c, h.retries)
	}

	return s, nil
}

// Best returns a copy of the best candidate observed so far. Its fitness
// never decreases over the swarm's lifetime.
func (s *Swarm[S]) Best() Candidate[S] {
	s.best.mu.Lock()
	defer s.best.mu.Unlock()
	return s.best.c
}

// Round returns the round counter of the active run, or false when no run is
// installed. Rounds are completed by racing goroutines, so the value is
// always a relatively fuzzy measurement.
func (s *Swarm[S]) Round() (round int, ok bool) {
	s.tasks.mu.Lock()
	defer s.tasks.mu.Unlock()
	if s.tasks.gen == nil {
		return 0, false
	}
	return s.tasks.gen.round, true
}

// Stop requests a cooperative stop of the active run: no further tokens are
// scheduled, and in-flight refinements finish normally. Idempotent; a no-op
// when no run is active.
func (s *Swarm[S]) Stop() {
	s.tasks.mu.Lock()
	defer s.tasks.mu.Unlock()
	if s.tasks.gen != nil {
		s.tasks.gen.stop()
	}
}

// Err returns the terminal error of the most recently finished background
// run, if any. It is set before the improvements channel closes.
func (s *Swarm[S]) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close stops any active run and waits for background runs to finish.
func (s *Swarm[S]) Close() {
	s.Stop()
	s.bg.Wait()
}

// RunForRounds runs the swarm until the given number of rounds completes,
// then returns a copy of the best candidate found. It returns an error if a
// run is already active, if the context is canceled, or if any goroutine
// fails; all goroutines are joined before returning either way.
func (s *Swarm[S]) RunForRounds(ctx context.Context, rounds int) (Candidate[S], error) {
	gen := newTaskGenerator(s.hive.workers, s.hive.observers).withMaxRounds(rounds)
	if err := s.install(gen); err != nil {
		return Candidate[S]{}, err
	}
	if err := s.runInstalled(ctx, gen); err != nil {
		return Candidate[S]{}, err
	}
	return s.Best(), nil
}

// Stream starts an unbounded run on a background goroutine and returns a
// channel that receives a copy of the best candidate each time it improves.
// The channel is closed when the run ends; the terminal status is then
// available from Err. Canceling ctx while an improvement is being delivered
// stands in for a departed receiver and stops the run.
//
// Delivery blocks once the channel buffer fills, so a receiver that stays
// subscribed but stops draining throttles the whole run; drain the channel
// promptly or cancel ctx.
func (s *Swarm[S]) Stream(ctx context.Context) (<-chan Candidate[S], error) {
	gen := newTaskGenerator(s.hive.workers, s.hive.observers)
	if err := s.install(gen); err != nil {
		return nil, err
	}

	ch := make(chan Candidate[S], s.hive.cfg.StreamBufferSize)
	s.stream.mu.Lock()
	s.stream.ch = ch
	s.stream.ctx = ctx
	s.stream.quit = gen.quit
	s.stream.mu.Unlock()

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		err := s.runInstalled(ctx, gen)
		s.setErr(err)

		s.stream.mu.Lock()
		close(ch)
		// a new stream may already be installed once the generator is
		// cleared, so only clear fields this run still owns
		if s.stream.ch == ch {
			s.stream.ch = nil
			s.stream.ctx = nil
			s.stream.quit = nil
		}
		s.stream.mu.Unlock()
	}()

	return ch, nil
}

// install makes gen the active generator. Only one run may be active.
func (s *Swarm[S]) install(gen *taskGenerator) error {
	s.tasks.mu.Lock()
	defer s.tasks.mu.Unlock()
	if s.tasks.gen != nil {
		return ErrActiveRun
	}
	s.tasks.gen = gen
	return nil
}

// runInstalled drives the already-installed generator with a pool of
// goroutines, joins them all, clears the generator, and reports the first
// failure if any.
func (s *Swarm[S]) runInstalled(ctx context.Context, gen *taskGenerator) error {
	logger := s.hive.cfg.Logger
	logger.Debug("run started",
		slog.Int("workers", s.hive.workers),
		slog.Int("observers", s.hive.observers),
		slog.Int("threads", s.hive.cfg.Threads),
		slog.Int("max_rounds", gen.maxRounds))

	p := pool.New().WithErrors().WithFirstError()
	for i := 0; i < s.hive.cfg.Threads; i++ {
		p.Go(func() error { return s.loop(ctx) })
	}
	err := p.Wait()

	s.tasks.mu.Lock()
	rounds := gen.round
	s.tasks.gen = nil
	s.tasks.mu.Unlock()

	if err != nil {
		logger.Debug("run failed", slog.Int("rounds", rounds), slog.Any("error", err))
		return err
	}
	logger.Debug("run finished", slog.Int("rounds", rounds))
	return nil
}

// loop is the body of one pool goroutine: pull a token under the generator
// lock, execute it with no generator lock held, repeat until exhaustion. Any
// failure stops the generator so sibling goroutines drain out.
func (s *Swarm[S]) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			s.Stop()
			return err
		}
		task, ok := s.nextTask()
		if !ok {
			return nil
		}
		if err := recovered(task.String(), func() error { return s.execute(task) }); err != nil {
			s.Stop()
			return err
		}
	}
}

func (s *Swarm[S]) nextTask() (task Task, ok bool) {
	s.tasks.mu.Lock()
	defer s.tasks.mu.Unlock()
	if s.tasks.gen == nil {
		return Task{}, false
	}
	return s.tasks.gen.advance()
}

// execute runs the refinement protocol for one token: snapshot the
// population, resolve the target index, explore, compare, replace or deplete.
func (s *Swarm[S]) execute(task Task) error {
	s.tokens.Add(1)

	working := s.snapshot()
	index := task.Index
	if task.Role == RoleObserver {
		index = s.choose(working)
	}
	return s.workOn(working, index)
}

// snapshot copies the current population candidates slot by slot. Slots are
// read under their own locks, so the copy is not synchronized across slots;
// staleness is tolerated by the algorithm.
func (s *Swarm[S]) snapshot() []Candidate[S] {
	working := make([]Candidate[S], len(s.working))
	for i := range s.working {
		sl := &s.working[i]
		sl.mu.RLock()
		working[i] = sl.wc.candidate
		sl.mu.RUnlock()
	}
	return working
}

// choose picks a slot index by fitness-proportionate selection: scale the
// snapshot fitnesses into weights, then draw from the cumulative table. When
// the total weight is zero or not finite the draw degenerates and a uniform
// index is returned instead.
func (s *Swarm[S]) choose(working []Candidate[S]) int {
	fitnesses := make([]float64, len(working))
	for i, c := range working {
		fitnesses[i] = c.Fitness
	}
	weights := s.hive.cfg.Scale(fitnesses)

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if !(total > 0) || math.IsInf(total, 1) || math.IsNaN(total) {
		return s.randIntn(len(working))
	}

	point := s.randFloat() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if cumulative > point {
			return i
		}
	}
	// rounding left the draw past the final entry
	return len(working) - 1
}

// workOn performs one refinement of the slot at index n. The exploration call
// runs with no locks held; the slot lock is taken only to compare and swap.
func (s *Swarm[S]) workOn(working []Candidate[S], n int) error {
	start := time.Now()
	solution, err := s.hive.explorer.Explore(working, n)
	s.exploreTime.Record(time.Since(start).Seconds())
	if err != nil {
		return errorc.With(err,
			errorc.String("op", "explore"),
			errorc.String("target", strconv.Itoa(n)))
	}
	variant := newCandidate(solution, s.hive.explorer.Fitness(solution))

	sl := &s.working[n]
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if variant.Fitness > sl.wc.candidate.Fitness {
		sl.wc = newWorkingCandidate(variant, s.hive.retries)
		s.considerImprovement(variant)
		return nil
	}

	sl.wc.deplete()
	if !sl.wc.expired() {
		return nil
	}

	// Local maximum: scouting is folded into the working process, so the
	// exhausted candidate is replaced by a fresh one on the spot.
	replacement, err := s.fresh()
	if err != nil {
		return errorc.With(err,
			errorc.String("op", "reinitialize"),
			errorc.String("target", strconv.Itoa(n)))
	}
	s.expirations.Add(1)
	s.hive.cfg.Logger.Debug("candidate expired", slog.Int("slot", n))
	sl.wc = newWorkingCandidate(replacement, s.hive.retries)
	s.considerImprovement(replacement)
	return nil
}

// fresh constructs a new candidate via the explorer. Construction is
// serialized; the fitness evaluation is not.
func (s *Swarm[S]) fresh() (Candidate[S], error) {
	s.builderMu.Lock()
	solution, err := s.hive.explorer.Fresh()
	s.builderMu.Unlock()
	if err != nil {
		return Candidate[S]{}, err
	}
	return newCandidate(solution, s.hive.explorer.Fitness(solution)), nil
}

// considerImprovement promotes c to the global best if it strictly improves
// on it, and publishes the new best to the improvements channel when
// streaming. The best fitness is monotonically non-decreasing.
func (s *Swarm[S]) considerImprovement(c Candidate[S]) {
	s.best.mu.Lock()
	defer s.best.mu.Unlock()
	if c.Fitness <= s.best.c.Fitness {
		return
	}
	s.best.c = c
	s.improvements.Add(1)
	s.bestFitness.Set(c.Fitness)
	s.hive.cfg.Logger.Debug("best improved", slog.Float64("fitness", c.Fitness))
	s.publish(c)
}

// publish delivers c to the streaming channel. The attempt and the possible
// stop are atomic with respect to other publishers. A canceled stream context
// means the receiver is gone, which winds the run down rather than failing
// it; a stopped generator abandons the delivery so Stop never deadlocks a
// publisher against a full channel.
func (s *Swarm[S]) publish(c Candidate[S]) {
	s.stream.mu.Lock()
	defer s.stream.mu.Unlock()
	if s.stream.ch == nil {
		return
	}
	select {
	case s.stream.ch <- c:
	case <-s.stream.ctx.Done():
		s.Stop()
	case <-s.stream.quit:
	}
}

func (s *Swarm[S]) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func (s *Swarm[S]) randFloat() float64 {
	s.rng.mu.Lock()
	defer s.rng.mu.Unlock()
	return s.rng.r.Float64()
}

func (s *Swarm[S]) randIntn(n int) int {
	s.rng.mu.Lock()
	defer s.rng.mu.Unlock()
	return s.rng.r.Intn(n)
}

// recovered invokes fn and converts a panic into an ErrPanicked-wrapped
// error so a failing goroutine reports instead of tearing the process down.
func recovered(scope string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errorc.With(ErrPanicked,
				errorc.String("scope", scope),
				errorc.String("panic", fmt.Sprint(p)))
		}
	}()
	return fn()
}
