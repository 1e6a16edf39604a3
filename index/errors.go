package index

import "errors"

var (
	// ErrNotFound reports a missing persisted artifact.
	ErrNotFound = errors.New("index: not found")
	// ErrCorruptIndex reports a structural mismatch or unparseable artifact.
	ErrCorruptIndex = errors.New("index: corrupt index")
	// ErrEmptyIndex reports a build that produced no vectors.
	ErrEmptyIndex = errors.New("index: empty index")
	// ErrDimensionMismatch reports a query whose dimension differs from the store's.
	ErrDimensionMismatch = errors.New("index: dimension mismatch")
	// ErrInvalidArgument reports a bad k, threshold or similar input.
	ErrInvalidArgument = errors.New("index: invalid argument")
	// ErrIO reports a failure writing artifacts.
	ErrIO = errors.New("index: io error")
	// ErrProviderMismatch reports a store built by a different embedding provider.
	ErrProviderMismatch = errors.New("index: embedding provider mismatch")
)
