package core

import "errors"

// Error kinds crossing the service boundary. Services translate storage-layer
// failures into one of these; raw driver errors never reach callers.
var (
	// ErrNotFound covers a missing member, event or pocket.
	ErrNotFound = errors.New("not found")

	// ErrRecordNotFound means the SUC record for a (member, event) pair is
	// absent. Records are created by the seeding step; their absence is a
	// precondition violation, not something the core repairs.
	ErrRecordNotFound = errors.New("suc record not found")

	// ErrStorageUnavailable marks transient connectivity failures to the store.
	// Callers may retry; the core itself never does.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrValidationFailed marks malformed input such as a non-positive amount.
	ErrValidationFailed = errors.New("validation failed")
)

// ErrorKind maps an error to its wire-level kind string.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return "RecordNotFound"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrStorageUnavailable):
		return "StorageUnavailable"
	case errors.Is(err, ErrValidationFailed):
		return "ValidationFailed"
	default:
		return "Internal"
	}
}
