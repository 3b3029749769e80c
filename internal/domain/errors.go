package domain

import "errors"

// Sentinel errors for the service error taxonomy. Use cases wrap these with
// fmt.Errorf("%w: ...") and the transport adapters map them to status codes
// with errors.Is.
var (
	// ErrNotFound indicates an unknown asset, goal, purchase or user ID.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the acting session lacks the required
	// capability (e.g. a non-admin price mutation attempt).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidValue indicates malformed or out-of-range input, such as a
	// negative price or a duplicate ticker.
	ErrInvalidValue = errors.New("invalid value")
)
