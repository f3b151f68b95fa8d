// Package abc runs an Artificial-Bee-Colony-style population optimizer on a
// pool of worker goroutines.
//
// A Hive holds the algorithm parameters and the user-supplied Explorer, the
// capability set that constructs and refines candidate solutions. Activating
// the hive with Swarm builds the initial population in parallel and returns a
// runnable Swarm.
//
// Roles
//   - Worker tokens refine a fixed, pre-assigned population slot.
//   - Observer tokens refine a slot chosen by fitness-proportionate random
//     selection over the current population.
//
// One round is a full pass through all worker slots followed by all observer
// draws. Tokens are emitted in a strict deterministic cycle; goroutines race
// to pull them, so execution order across slots carries no guarantee.
//
// Run modes
//   - RunForRounds blocks until the configured number of rounds completes and
//     returns the best candidate found.
//   - Stream runs in the background and delivers a copy of the best candidate
//     on every improvement until the context is canceled or Stop is called.
//
// Each population slot has its own lock, so the expensive Explore call always
// executes with no engine locks held. A panic inside user code aborts the run
// and surfaces as an ErrPanicked-wrapped error after all goroutines join.
package abc
