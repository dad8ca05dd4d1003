package storage

import "errors"

// Sentinel errors shared by every store implementation. Runs and price rows
// are immutable once written, so a key collision is always a conflict, never
// an update.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned on inserting a run ID or (series, month)
	// pair that is already stored.
	ErrDuplicateKey = errors.New("duplicate key: stored records are immutable")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
