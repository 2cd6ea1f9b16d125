package store

import "errors"

var (
	// ErrNotFound reports a missing library file.
	ErrNotFound = errors.New("library file not found")
	// ErrClaimConflict reports that another runner claimed the file first or
	// the file left the claimable statuses.
	ErrClaimConflict = errors.New("library file already claimed")
	// ErrInvalidTransition reports a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)
