package deployment

import "errors"

// Predefined errors for the deployment package.
var (
	// ErrDocumentNotFound indicates the configuration document does not
	// exist at the given path.
	ErrDocumentNotFound = errors.New("deployment document not found")

	// ErrMalformedDocument indicates the document could not be decoded,
	// including documents carrying unknown fields.
	ErrMalformedDocument = errors.New("malformed deployment document")

	// ErrPersistFailed indicates the document could not be written
	// durably. In-memory state is retained so a retry is possible.
	ErrPersistFailed = errors.New("failed to persist deployment document")

	// ErrInvalidConfig indicates invalid store or settings configuration.
	ErrInvalidConfig = errors.New("invalid deployment configuration")
)
