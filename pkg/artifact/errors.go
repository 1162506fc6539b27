package artifact

import "errors"

// Predefined errors for the artifact package.
var (
	// ErrVersionNotFound indicates the requested version is not registered.
	ErrVersionNotFound = errors.New("artifact version not found")

	// ErrVersionExists indicates an install attempt over an existing version id.
	ErrVersionExists = errors.New("artifact version already installed")

	// ErrValidationFailed indicates content validation reported issues;
	// install refuses to proceed while issues are non-empty.
	ErrValidationFailed = errors.New("artifact content validation failed")

	// ErrChecksumMismatch indicates the recomputed content checksum differs
	// from the recorded one. Activation never proceeds on drifted content.
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")

	// ErrContentMissing indicates a version's stored content is gone.
	ErrContentMissing = errors.New("artifact content missing from storage")

	// ErrNoRollbackTarget indicates no non-active version exists to roll
	// back to.
	ErrNoRollbackTarget = errors.New("no artifact version available for rollback")

	// ErrPersistFailed indicates the registry could not be durably saved.
	// In-memory state is retained so the operation can be retried.
	ErrPersistFailed = errors.New("failed to persist artifact registry")

	// ErrInvalidConfig indicates invalid storage configuration.
	ErrInvalidConfig = errors.New("invalid artifact storage configuration")

	// ErrInvalidPath indicates a path escaping the storage root.
	ErrInvalidPath = errors.New("invalid artifact storage path")

	// ErrContentNotFound indicates the requested object does not exist in
	// storage.
	ErrContentNotFound = errors.New("artifact content not found")

	// ErrStorageFailure indicates a storage backend I/O failure.
	ErrStorageFailure = errors.New("artifact storage operation failed")
)
