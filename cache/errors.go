package cache

import "errors"

// Sentinel errors for cache construction and lookups.
var (
	// ErrInvalidPolicy indicates a policy spec that cannot be parsed.
	ErrInvalidPolicy = errors.New("cache: invalid policy")

	// ErrUnsupportedOption indicates a recognized policy option that has no
	// Go counterpart, such as weakKeys or softValues.
	ErrUnsupportedOption = errors.New("cache: unsupported policy option")

	// ErrStorePanic wraps a panic recovered from a Store.
	ErrStorePanic = errors.New("cache: store panicked")

	// ErrNilCompute is returned by Get and Lookup when compute is nil.
	ErrNilCompute = errors.New("cache: compute function is nil")

	// ErrInvalidOption indicates an Option that does not fit the cache,
	// such as a Store of a different value type.
	ErrInvalidOption = errors.New("cache: invalid option")

	// ErrClosed is returned by store operations after Close. Lookups on a
	// closed cache fall back to direct computation.
	ErrClosed = errors.New("cache: closed")
)

// errComputePanicked is handed to callers that waited on a computation
// which panicked.
var errComputePanicked = errors.New("cache: compute panicked")
