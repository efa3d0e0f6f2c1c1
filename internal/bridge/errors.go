package bridge

import "errors"

// Domain-specific errors for the bridge.
var (
	// ErrEndpointsExhausted is returned when no endpoint number is left.
	ErrEndpointsExhausted = errors.New("bridge: endpoint numbers exhausted")

	// ErrUnsupported is returned for entities no capability can represent.
	ErrUnsupported = errors.New("bridge: entity not supported")

	// ErrFiltered is returned for entities excluded by the filter.
	ErrFiltered = errors.New("bridge: entity excluded by filter")

	// ErrNotRunning is returned by operations that need Run to be active.
	ErrNotRunning = errors.New("bridge: not running")
)
