package abc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hiveopt/abc"
	"github.com/hiveopt/abc/metrics"
)

// risingExplorer produces a strictly higher fitness on every call, so every
// refinement is accepted and run outcomes are exact regardless of scheduling.
type risingExplorer struct {
	mu    sync.Mutex
	next  float64
	fresh int
	delay time.Duration
}

func (e *risingExplorer) Fresh() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fresh++
	e.next++
	return e.next, nil
}

func (e *risingExplorer) Explore(_ []abc.Candidate[float64], _ int) (float64, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	return e.next, nil
}

func (e *risingExplorer) Fitness(s float64) float64 { return s }

func (e *risingExplorer) freshCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fresh
}

// sinkingExplorer never improves: fresh candidates score 50, explored ones 0.
type sinkingExplorer struct {
	mu    sync.Mutex
	fresh int
}

func (e *sinkingExplorer) Fresh() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fresh++
	return 50, nil
}

func (e *sinkingExplorer) Explore(_ []abc.Candidate[float64], _ int) (float64, error) {
	return 0, nil
}

func (e *sinkingExplorer) Fitness(s float64) float64 { return s }

func (e *sinkingExplorer) freshCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fresh
}

func counterValue(t *testing.T, p *metrics.BasicProvider, name string) int64 {
	t.Helper()
	c, ok := p.Counter(name).(*metrics.BasicCounter)
	require.True(t, ok)
	return c.Snapshot()
}

func TestSwarm_InitialPopulation(t *testing.T) {
	ex := &risingExplorer{}
	hive, err := abc.New[float64](ex, 5, 0, 3, abc.WithThreads(4))
	require.NoError(t, err)

	swarm, err := hive.Swarm()
	require.NoError(t, err)

	// five fresh candidates scoring 1..5; the best slot is captured at activation
	require.Equal(t, 5, ex.freshCalls())
	require.Equal(t, 5.0, swarm.Best().Fitness)
}

func TestSwarm_InitFailureLeavesNoSwarm(t *testing.T) {
	errBroken := errors.New("broken builder")
	hive, err := abc.New[float64](failingExplorer{freshErr: errBroken}, 4, 0, 1)
	require.NoError(t, err)

	swarm, err := hive.Swarm()
	require.ErrorIs(t, err, errBroken)
	require.Nil(t, swarm)
}

func TestRunForRounds_ExactTokenBudget(t *testing.T) {
	ex := &risingExplorer{}
	provider := metrics.NewBasicProvider()
	hive, err := abc.New[float64](ex, 4, 2, 10,
		abc.WithThreads(3),
		abc.WithSeed(1),
		abc.WithMetrics(provider),
	)
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	best, err := swarm.RunForRounds(context.Background(), 3)
	require.NoError(t, err)

	// 4 initial constructions score 1..4, then exactly 3*(4+2) explorations,
	// each accepted; the best is the last value handed out.
	require.Equal(t, int64(18), counterValue(t, provider, "abc.tokens"))
	require.Equal(t, 22.0, best.Fitness)
	require.Equal(t, best.Fitness, swarm.Best().Fitness)
	require.Equal(t, 4, ex.freshCalls(), "no expirations expected")

	// the generator is torn down after the run
	_, ok := swarm.Round()
	require.False(t, ok)
}

func TestRunForRounds_ZeroObserversTerminates(t *testing.T) {
	ex := &risingExplorer{}
	provider := metrics.NewBasicProvider()
	hive, err := abc.New[float64](ex, 3, 0, 10,
		abc.WithThreads(2), abc.WithMetrics(provider))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := swarm.RunForRounds(context.Background(), 5)
		require.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run with zero observers did not terminate")
	}
	require.Equal(t, int64(15), counterValue(t, provider, "abc.tokens"))
}

func TestRunForRounds_ZeroRoundsReturnsInitialBest(t *testing.T) {
	ex := &risingExplorer{}
	provider := metrics.NewBasicProvider()
	hive, err := abc.New[float64](ex, 3, 1, 1, abc.WithMetrics(provider))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	best, err := swarm.RunForRounds(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3.0, best.Fitness)
	require.Equal(t, int64(0), counterValue(t, provider, "abc.tokens"))
}

func TestRunForRounds_SequentialRuns(t *testing.T) {
	ex := &risingExplorer{}
	hive, err := abc.New[float64](ex, 2, 1, 10, abc.WithThreads(2), abc.WithSeed(3))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	first, err := swarm.RunForRounds(context.Background(), 2)
	require.NoError(t, err)
	second, err := swarm.RunForRounds(context.Background(), 2)
	require.NoError(t, err)
	require.Greater(t, second.Fitness, first.Fitness, "best fitness never decreases")
}

func TestRetryBudget_ExpirationReinitializes(t *testing.T) {
	ex := &sinkingExplorer{}
	provider := metrics.NewBasicProvider()
	hive, err := abc.New[float64](ex, 1, 0, 2,
		abc.WithThreads(1), abc.WithMetrics(provider))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	best, err := swarm.RunForRounds(context.Background(), 6)
	require.NoError(t, err)

	// six failed refinements with a budget of two: every second failure
	// expires the slot and pulls a fresh candidate
	require.Equal(t, int64(6), counterValue(t, provider, "abc.tokens"))
	require.Equal(t, int64(3), counterValue(t, provider, "abc.expirations"))
	require.Equal(t, 4, ex.freshCalls(), "one initial build plus three replacements")

	// replacements score the same as the initial best, so nothing improves
	require.Equal(t, 50.0, best.Fitness)
	require.Equal(t, int64(0), counterValue(t, provider, "abc.improvements"))
}

func TestRetryBudget_ZeroReplacesOnEveryFailure(t *testing.T) {
	ex := &sinkingExplorer{}
	provider := metrics.NewBasicProvider()
	hive, err := abc.New[float64](ex, 1, 0, 0,
		abc.WithThreads(1), abc.WithMetrics(provider))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	_, err = swarm.RunForRounds(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), counterValue(t, provider, "abc.expirations"))
	require.Equal(t, 4, ex.freshCalls())
}

func TestStop_WithoutActiveRunIsNoop(t *testing.T) {
	hive, err := abc.New[float64](&risingExplorer{}, 2, 0, 1)
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	swarm.Stop()
	swarm.Stop()
	_, ok := swarm.Round()
	require.False(t, ok)

	// the swarm is still runnable afterwards
	_, err = swarm.RunForRounds(context.Background(), 1)
	require.NoError(t, err)
}

func TestStream_ImprovementsStrictlyIncrease(t *testing.T) {
	ex := &risingExplorer{}
	hive, err := abc.New[float64](ex, 2, 2, 10,
		abc.WithThreads(2), abc.WithSeed(11), abc.WithStreamBuffer(64))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	improvements, err := swarm.Stream(context.Background())
	require.NoError(t, err)

	received := make([]float64, 0, 10)
	for c := range improvements {
		received = append(received, c.Fitness)
		if len(received) == 10 {
			swarm.Stop()
			break
		}
	}
	for range improvements {
		// drain until the background run closes the channel
	}

	require.Len(t, received, 10)
	for i := 1; i < len(received); i++ {
		require.Greater(t, received[i], received[i-1],
			"stream must yield strictly increasing fitness, no duplicates for ties")
	}
	require.NoError(t, swarm.Err(), "a stopped run is a clean completion")
}

func TestStream_RoundProgresses(t *testing.T) {
	ex := &risingExplorer{}
	hive, err := abc.New[float64](ex, 2, 1, 10, abc.WithThreads(2), abc.WithStreamBuffer(256))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	improvements, err := swarm.Stream(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		round, ok := swarm.Round()
		return ok && round >= 1
	}, 5*time.Second, time.Millisecond, "rounds should advance while streaming")

	swarm.Stop()
	for range improvements {
	}
}

func TestStream_ContextCancelStopsRun(t *testing.T) {
	ex := &risingExplorer{}
	hive, err := abc.New[float64](ex, 2, 0, 10,
		abc.WithThreads(2), abc.WithStreamBuffer(0))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	improvements, err := swarm.Stream(ctx)
	require.NoError(t, err)

	// the receiver walks away without draining
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, open := <-improvements:
			if !open {
				require.ErrorIs(t, swarm.Err(), context.Canceled)
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after context cancellation")
		}
	}
}

func TestStream_SecondRunRejectedWhileActive(t *testing.T) {
	ex := &risingExplorer{delay: time.Millisecond}
	hive, err := abc.New[float64](ex, 2, 0, 10, abc.WithThreads(2), abc.WithStreamBuffer(256))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	improvements, err := swarm.Stream(context.Background())
	require.NoError(t, err)

	_, err = swarm.Stream(context.Background())
	require.ErrorIs(t, err, abc.ErrActiveRun)
	_, err = swarm.RunForRounds(context.Background(), 1)
	require.ErrorIs(t, err, abc.ErrActiveRun)

	swarm.Stop()
	for range improvements {
	}
}

func TestClose_StopsBackgroundRun(t *testing.T) {
	ex := &risingExplorer{}
	hive, err := abc.New[float64](ex, 2, 0, 10, abc.WithThreads(2), abc.WithStreamBuffer(0))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	_, err = swarm.Stream(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// nobody drains the unbuffered channel; Close must still return
		swarm.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not terminate the background run")
	}
}

// failingExplorer returns configured errors or panics from its capabilities.
type failingExplorer struct {
	freshErr   error
	exploreErr error
	panicMsg   string
}

func (e failingExplorer) Fresh() (float64, error) {
	if e.freshErr != nil {
		return 0, e.freshErr
	}
	return 1, nil
}

func (e failingExplorer) Explore(_ []abc.Candidate[float64], _ int) (float64, error) {
	if e.panicMsg != "" {
		panic(e.panicMsg)
	}
	if e.exploreErr != nil {
		return 0, e.exploreErr
	}
	return 0, nil
}

func (e failingExplorer) Fitness(s float64) float64 { return s }

func TestRun_PanicSurfacesAsError(t *testing.T) {
	hive, err := abc.New[float64](failingExplorer{panicMsg: "boom"}, 2, 0, 1, abc.WithThreads(2))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	_, err = swarm.RunForRounds(context.Background(), 3)
	require.ErrorIs(t, err, abc.ErrPanicked)

	// unlike a poisoned lock, the swarm stays usable for the next run
	_, ok := swarm.Round()
	require.False(t, ok)
}

func TestRun_ExploreErrorAbortsRun(t *testing.T) {
	errExplore := errors.New("no neighborhood")
	hive, err := abc.New[float64](failingExplorer{exploreErr: errExplore}, 2, 0, 1, abc.WithThreads(2))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	_, err = swarm.RunForRounds(context.Background(), 3)
	require.ErrorIs(t, err, errExplore)
}

func TestRunForRounds_ContextCancellation(t *testing.T) {
	ex := &risingExplorer{delay: time.Millisecond}
	hive, err := abc.New[float64](ex, 2, 0, 10, abc.WithThreads(2))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = swarm.RunForRounds(ctx, 1<<30)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBest_GaugeTracksImprovements(t *testing.T) {
	ex := &risingExplorer{}
	provider := metrics.NewBasicProvider()
	hive, err := abc.New[float64](ex, 2, 0, 10,
		abc.WithThreads(1), abc.WithMetrics(provider))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	best, err := swarm.RunForRounds(context.Background(), 2)
	require.NoError(t, err)

	gauge, ok := provider.Gauge("abc.best_fitness").(*metrics.BasicGauge)
	require.True(t, ok)
	v, set := gauge.Snapshot()
	require.True(t, set)
	require.Equal(t, best.Fitness, v)
	require.Equal(t, int64(4), counterValue(t, provider, "abc.improvements"))
}
