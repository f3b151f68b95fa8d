package abc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// A run's teardown can lose the race against the next Stream call: the
// generator is cleared before the stream fields are, so a caller that sees
// Round() report no active run may install a new stream that the old run's
// cleanup must not wipe.
func TestStream_RestartDuringTeardownKeepsNewStream(t *testing.T) {
	hive, err := New[float64](constExplorer{v: 1}, 2, 0, 5, WithThreads(1))
	require.NoError(t, err)
	swarm, err := hive.Swarm()
	require.NoError(t, err)

	first, err := swarm.Stream(context.Background())
	require.NoError(t, err)

	// park the first run's teardown on the error lock, then stop the run;
	// the generator is cleared before teardown reaches the stream fields
	swarm.errMu.Lock()
	swarm.Stop()
	require.Eventually(t, func() bool {
		_, ok := swarm.Round()
		return !ok
	}, 5*time.Second, time.Millisecond)

	// a caller polling Round would start over right here
	second, err := swarm.Stream(context.Background())
	require.NoError(t, err)

	// let the first teardown through; it closes its own channel only
	swarm.errMu.Unlock()
	_, open := <-first
	require.False(t, open)

	// the second stream's plumbing must have survived the old teardown
	swarm.publish(newCandidate(9.0, 9.0))
	select {
	case c := <-second:
		require.Equal(t, 9.0, c.Fitness)
	default:
		t.Fatal("improvement dropped after the previous run's teardown")
	}

	swarm.Stop()
	for range second {
	}
	require.NoError(t, swarm.Err())
}
