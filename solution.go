package abc

// Explorer is the pluggable capability set the engine refines solutions with.
// The engine never inspects solutions beyond the fitness reported here.
//
// Concurrency contract:
//   - Fresh calls are serialized by the engine, so implementations may keep
//     mutable construction state (for example a shared random source) without
//     their own locking.
//   - Explore and Fitness are called concurrently from many goroutines with
//     no engine locks held and must be safe for concurrent use.
type Explorer[S any] interface {
	// Fresh constructs a brand-new solution, used for the initial population
	// and to replace expired candidates.
	Fresh() (S, error)

	// Explore derives a new solution from the neighborhood of the candidate
	// at working[target]. The slice is a point-in-time copy of the population
	// and may be stale; it must not be mutated.
	Explore(working []Candidate[S], target int) (S, error)

	// Fitness scores a solution. Higher is better. Must be pure.
	Fitness(s S) float64
}
