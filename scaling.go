package abc

import "sort"

// ScalingFunction maps raw fitness values to non-negative selection weights
// for the observer draw. Implementations must return one weight per input
// value and must be pure.
type ScalingFunction func(fitnesses []float64) []float64

// Proportionate scales selection weight linearly with fitness. Values are
// shifted so the minimum maps to zero, which keeps weights non-negative even
// when fitnesses are negative. If all values are equal, every weight ends up
// zero and the observer draw falls back to a uniform choice.
func Proportionate() ScalingFunction {
	return func(fitnesses []float64) []float64 {
		if len(fitnesses) == 0 {
			return nil
		}
		min := fitnesses[0]
		for _, f := range fitnesses[1:] {
			if f < min {
				min = f
			}
		}
		weights := make([]float64, len(fitnesses))
		for i, f := range fitnesses {
			weights[i] = f - min
		}
		return weights
	}
}

// Rank scales selection weight with the fitness rank rather than the value:
// the worst candidate gets weight 1, the best gets weight n. Rank scaling
// keeps selection pressure stable when fitness magnitudes vary wildly.
func Rank() ScalingFunction {
	return func(fitnesses []float64) []float64 {
		n := len(fitnesses)
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return fitnesses[order[a]] < fitnesses[order[b]]
		})
		weights := make([]float64, n)
		for rank, idx := range order {
			weights[idx] = float64(rank + 1)
		}
		return weights
	}
}
