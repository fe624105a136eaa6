package model

import "errors"

var (
	// ErrConfig reports an invalid or incomplete configuration. It is fatal at startup.
	ErrConfig = errors.New("invalid configuration")
	// ErrData reports forecast or telemetry data that cannot be used for a cycle.
	ErrData = errors.New("invalid input data")
	// ErrStaleData reports telemetry older than the accepted staleness window.
	ErrStaleData = errors.New("stale telemetry")
	// ErrSolver reports an infeasible problem or a solver failure.
	ErrSolver = errors.New("solver failure")
	// ErrActuation reports a command that could not be delivered after all retries.
	ErrActuation = errors.New("actuation failed")
)
