package feedback

import "errors"

// Error taxonomy for every write and read operation in this package.
// Callers branch with errors.Is; the HTTP layer maps each kind to a
// status code.
var (
	// ErrValidation covers malformed input and business-rule violations:
	// score out of range, empty comment, inactive season window.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a referenced feedback, season, user or delete
	// request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden covers role and ownership violations: wrong mentor,
	// self-feedback, cross-season access.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is kept for parity with the taxonomy; the write paths
	// here are cascade-safe and do not currently produce it.
	ErrConflict = errors.New("conflict")
)
