package abc

// Candidate pairs a solution with the fitness it scored at construction time.
// Candidates are plain values: the engine copies them freely, so solutions
// should either have value semantics or never be mutated after construction.
type Candidate[S any] struct {
	Solution S
	Fitness  float64
}

func newCandidate[S any](solution S, fitness float64) Candidate[S] {
	return Candidate[S]{Solution: solution, Fitness: fitness}
}

// workingCandidate wraps a population member with its remaining retry budget.
// It is mutated only under the owning slot's write lock.
type workingCandidate[S any] struct {
	candidate Candidate[S]
	retries   int
}

func newWorkingCandidate[S any](c Candidate[S], retries int) workingCandidate[S] {
	return workingCandidate[S]{candidate: c, retries: retries}
}

// deplete records one refinement attempt that failed to improve the wrapped
// candidate. The budget never goes below zero.
func (w *workingCandidate[S]) deplete() {
	if w.retries > 0 {
		w.retries--
	}
}

// expired reports whether the candidate has exhausted its retry budget and
// must be replaced by a fresh one regardless of fitness.
func (w *workingCandidate[S]) expired() bool {
	return w.retries == 0
}
