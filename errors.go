package abc

import "errors"

const Namespace = "abc"

var (
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrActiveRun     = errors.New(Namespace + ": a run is already active")
	ErrPanicked      = errors.New(Namespace + ": token execution panicked")
)
