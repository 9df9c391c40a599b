package types

import "errors"

// Sentinel errors shared by repositories and services. Callers match
// them with errors.Is.
var (
	// ErrNotFound means a referenced user, character, or conversation
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable means the remote character responder failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrPersistence means a storage write failed after side effects may
	// have already happened. No automatic compensation is attempted.
	ErrPersistence = errors.New("persistence failure")
)
