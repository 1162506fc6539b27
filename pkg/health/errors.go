package health

import "errors"

// Predefined errors for the health package.
var (
	// ErrInsufficientData indicates the window holds no samples for the
	// requested span. Expected while a deployment warms up.
	ErrInsufficientData = errors.New("insufficient health data for requested window")
)
