// Package bench provides benchmark objective functions from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization and a
// ready-made explorer that searches them with the classic bee-colony
// neighborhood move.
package bench

import "math"

// Func is a benchmark objective to be minimized within its bounds.
type Func interface {
	Name() string
	Eval(v []float64) float64
	Bounds() (low, up []float64)
	// Optimum returns the global minimum value.
	Optimum() float64
}

// AllFuncs lists every benchmark function in the package.
var AllFuncs = []Func{
	Sphere{NDim: 2},
	Sphere{NDim: 10},
	Rastrigin{NDim: 2},
	Rastrigin{NDim: 10},
	Eggholder{},
}

// Sphere is the n-dimensional sum of squares; minimum 0 at the origin.
type Sphere struct {
	NDim int
}

func (fn Sphere) Name() string { return "Sphere" }

func (fn Sphere) Eval(v []float64) float64 {
	tot := 0.0
	for _, x := range v {
		tot += x * x
	}
	return tot
}

func (fn Sphere) Bounds() (low, up []float64) {
	low = make([]float64, fn.NDim)
	up = make([]float64, fn.NDim)
	for i := range low {
		low[i], up[i] = -100, 100
	}
	return low, up
}

func (fn Sphere) Optimum() float64 { return 0 }

// Rastrigin is highly multimodal; minimum 0 at the origin.
type Rastrigin struct {
	NDim int
}

func (fn Rastrigin) Name() string { return "Rastrigin" }

func (fn Rastrigin) Eval(v []float64) float64 {
	tot := 10.0 * float64(len(v))
	for _, x := range v {
		tot += x*x - 10*math.Cos(2*math.Pi*x)
	}
	return tot
}

func (fn Rastrigin) Bounds() (low, up []float64) {
	low = make([]float64, fn.NDim)
	up = make([]float64, fn.NDim)
	for i := range low {
		low[i], up[i] = -5.12, 5.12
	}
	return low, up
}

func (fn Rastrigin) Optimum() float64 { return 0 }

// Eggholder is a difficult 2-dimensional function with minimum about
// -959.6407 at (512, 404.2319).
type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) Eval(v []float64) float64 {
	x := v[0]
	y := v[1]
	return -(y+47)*math.Sin(math.Sqrt(math.Abs(x/2+y+47))) -
		x*math.Sin(math.Sqrt(math.Abs(x-(y+47))))
}

func (fn Eggholder) Bounds() (low, up []float64) {
	return []float64{-512, -512}, []float64{512, 512}
}

func (fn Eggholder) Optimum() float64 { return -959.6407 }
