package feature

import "errors"

// Predefined errors for the feature package.
var (
	// ErrFlagNotFound indicates that the requested feature flag was not found.
	ErrFlagNotFound = errors.New("feature flag not found")

	// ErrInvalidFlag indicates that the provided flag parameters are invalid.
	ErrInvalidFlag = errors.New("invalid feature flag parameters")

	// ErrInvalidStage indicates an unknown rollout stage value.
	ErrInvalidStage = errors.New("invalid rollout stage")

	// ErrStoreClosed indicates the flag store has been closed.
	ErrStoreClosed = errors.New("feature flag store is closed")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("feature flag store unavailable")
)
