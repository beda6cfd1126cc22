package store

import "errors"

// Sentinel errors returned by store implementations. Callers match them
// with errors.Is to map persistence failures onto API responses.
var (
	ErrNotFound  = errors.New("store: resource not found")
	ErrDuplicate = errors.New("store: duplicate resource")
	ErrConflict  = errors.New("store: conflicting state")
)
