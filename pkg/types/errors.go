package types

import "errors"

var (
	// ErrModelUnavailable means a Model Gateway call failed or timed out
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrParseFailure means a model answer did not match the expected shape
	ErrParseFailure = errors.New("model output parse failure")
	// ErrRetrievalDegraded means a vector or store lookup failed mid-assembly
	ErrRetrievalDegraded = errors.New("retrieval degraded")
	// ErrNotConfigured means a required collaborator binding is absent
	ErrNotConfigured = errors.New("not configured")
	// ErrNotFound is returned by store lookups that match nothing
	ErrNotFound = errors.New("not found")
)
