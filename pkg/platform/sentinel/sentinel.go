package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors.
//
//   - ErrNotFound: row does not exist
//   - ErrConflict: a uniqueness rule rejected the write (e.g. second open
//     guardianship for the same user and animal)
//   - ErrAlreadyUsed: the write was already applied (replayed provider
//     transaction, duplicate provider subscription id)
//   - ErrInvalidState: row is in the wrong state for the requested write
//   - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
