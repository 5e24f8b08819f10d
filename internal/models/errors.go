package models

import "errors"

// Error taxonomy shared across the market core. Callers classify failures
// with errors.Is; packages wrap these with context via fmt.Errorf and %w.
var (
	// ErrNotFound reports an unknown drink, session, or history entry id.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports rejected input: bad bounds, negative quantity,
	// invalid happy-hour duration, or a sale recorded with no open session.
	ErrValidation = errors.New("validation failed")
	// ErrConflict reports an operation illegal in the current state, such
	// as starting a session while one is already open.
	ErrConflict = errors.New("conflict")
	// ErrPersistence reports a storage collaborator failure.
	ErrPersistence = errors.New("persistence failure")
)
