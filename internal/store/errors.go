package store

import "errors"

// ErrConflict is returned when an insert violates a unique constraint,
// such as a second like or duplicate reaction racing past the service's
// pre-check.
var ErrConflict = errors.New("unique constraint violation")
