package catalog

import "errors"

// Sentinel errors surfaced by catalog operations, mapped to HTTP statuses
// by their callers in pkg/api and the protocol handlers.
var (
	ErrNotFound = errors.New("catalog: not found")
	ErrConflict = errors.New("catalog: uniqueness or state conflict")
)
