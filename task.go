package abc

import "strconv"

// Role distinguishes the two kinds of work tokens.
type Role uint8

const (
	// RoleWorker refines the fixed population slot matching the token index.
	RoleWorker Role = iota
	// RoleObserver refines a slot chosen by fitness-proportionate selection.
	// The token index only drives the round boundary.
	RoleObserver
)

func (r Role) String() string {
	if r == RoleObserver {
		return "observer"
	}
	return "worker"
}

// Task is a single unit of work pulled from the generator by a pool goroutine.
type Task struct {
	Role  Role
	Index int
}

func (t Task) String() string {
	return t.Role.String() + "(" + strconv.Itoa(t.Index) + ")"
}

// taskGenerator produces the deterministic round-robin token cycle
// Worker(0..W), Observer(0..O), repeated. It is not safe for concurrent use
// on its own; the swarm serializes access behind its generator mutex.
type taskGenerator struct {
	workers   int
	observers int

	next      Task
	round     int
	maxRounds int // < 0 means unbounded
	stopped   bool

	// quit is closed exactly once when the generator stops, either externally
	// or at the round cap. Streaming publishers select on it so a stop never
	// leaves them blocked on a full channel.
	quit chan struct{}
}

func newTaskGenerator(workers, observers int) *taskGenerator {
	return &taskGenerator{
		workers:   workers,
		observers: observers,
		next:      Task{Role: RoleWorker},
		maxRounds: -1,
		quit:      make(chan struct{}),
	}
}

// withMaxRounds caps the generator at n completed rounds.
func (g *taskGenerator) withMaxRounds(n int) *taskGenerator {
	g.maxRounds = n
	if n <= 0 {
		g.stop()
	}
	return g
}

// stop permanently exhausts the generator. Idempotent.
func (g *taskGenerator) stop() {
	if !g.stopped {
		g.stopped = true
		close(g.quit)
	}
}

// advance returns the next token in the cycle, or ok == false once the
// generator is exhausted. Crossing back to Worker(0) completes a round; when
// there are no observers the round completes at the end of the worker phase,
// so runs with observers == 0 still terminate at their round cap.
func (g *taskGenerator) advance() (task Task, ok bool) {
	if g.stopped {
		return Task{}, false
	}

	current := g.next

	switch {
	case current.Role == RoleWorker && current.Index == g.workers-1:
		if g.observers > 0 {
			g.next = Task{Role: RoleObserver}
		} else {
			g.completeRound()
			g.next = Task{Role: RoleWorker}
		}
	case current.Role == RoleWorker:
		g.next = Task{Role: RoleWorker, Index: current.Index + 1}
	case current.Index == g.observers-1:
		g.completeRound()
		g.next = Task{Role: RoleWorker}
	default:
		g.next = Task{Role: RoleObserver, Index: current.Index + 1}
	}

	return current, true
}

func (g *taskGenerator) completeRound() {
	g.round++
	if g.maxRounds >= 0 && g.round >= g.maxRounds {
		g.stop()
	}
}
