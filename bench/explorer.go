package bench

import (
	"math/rand"
	"sync"

	"github.com/hiveopt/abc"
)

// Explorer adapts a benchmark Func to abc.Explorer[[]float64].
//
// Fresh draws a uniform point inside the function's bounds. Explore performs
// the classic bee-colony neighborhood move: copy the target, pick one random
// dimension j and one random partner k, and shift
//
//	v[j] = x[j] + phi*(x[j] - p[j]),  phi uniform in [-1, 1]
//
// clamping to the bounds. Fitness is the negated objective value, so the
// engine's maximization drives the objective toward its minimum.
type Explorer struct {
	Fn Func

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExplorer creates an Explorer over fn with a deterministic seed.
func NewExplorer(fn Func, seed int64) *Explorer {
	return &Explorer{Fn: fn, rng: rand.New(rand.NewSource(seed))}
}

var _ abc.Explorer[[]float64] = (*Explorer)(nil)

func (e *Explorer) Fresh() ([]float64, error) {
	low, up := e.Fn.Bounds()
	v := make([]float64, len(low))
	e.mu.Lock()
	for i := range v {
		v[i] = low[i] + e.rng.Float64()*(up[i]-low[i])
	}
	e.mu.Unlock()
	return v, nil
}

func (e *Explorer) Explore(working []abc.Candidate[[]float64], target int) ([]float64, error) {
	low, up := e.Fn.Bounds()
	x := working[target].Solution

	e.mu.Lock()
	j := e.rng.Intn(len(x))
	k := e.rng.Intn(len(working))
	if len(working) > 1 {
		for k == target {
			k = e.rng.Intn(len(working))
		}
	}
	phi := 2*e.rng.Float64() - 1
	e.mu.Unlock()

	partner := working[k].Solution

	v := make([]float64, len(x))
	copy(v, x)
	v[j] = x[j] + phi*(x[j]-partner[j])
	if v[j] < low[j] {
		v[j] = low[j]
	}
	if v[j] > up[j] {
		v[j] = up[j]
	}
	return v, nil
}

func (e *Explorer) Fitness(v []float64) float64 {
	return -e.Fn.Eval(v)
}
