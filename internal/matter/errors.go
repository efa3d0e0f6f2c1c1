package matter

import "errors"

// Error taxonomy for the synchronisation core.
//
// Only programmer-error class conditions surface as errors, and only once at
// construction or activation. Malformed upstream data never produces an error:
// projections absorb it with fallback values.
var (
	// ErrConfiguration is returned when static capability parameters are
	// invalid, e.g. a string limit below the protocol minimum or a
	// descriptor that depends on an unknown capability.
	ErrConfiguration = errors.New("matter: configuration error")

	// ErrDependencyMissing is returned when a behavior requires a sibling
	// capability that is not present on its endpoint.
	ErrDependencyMissing = errors.New("matter: dependency missing")

	// ErrTerminated is returned when an operation is attempted on a
	// behavior or endpoint that has already been torn down.
	ErrTerminated = errors.New("matter: terminated")
)
