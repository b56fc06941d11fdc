package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrDuplicate: unique constraint violated (identifier, name, period)
// - ErrInvalidState: entity in wrong state for requested mutation
// - ErrSerialization: concurrent transaction conflict, safe to retry
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("duplicate")
	ErrInvalidState  = errors.New("invalid state")
	ErrSerialization = errors.New("serialization conflict")
	ErrUnavailable   = errors.New("unavailable")
)
