package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, object storage and outbound
// clients return these (optionally wrapped) so services can translate them into
// domain errors.
//
//   - ErrNotFound: record or object does not exist
//   - ErrConflict: unique key already taken (e.g. a replayed idempotency key)
//   - ErrInvalidState: record in wrong state for requested operation
//   - ErrUnavailable: backend temporarily unreachable; callers may retry
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
