package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so callers can branch with errors.Is.
//
// - ErrNotFound: key does not exist in the store
// - ErrUnavailable: backing store or native capability is not usable
// - ErrUnauthenticated: no auth token is present
// - ErrCircuitOpen: the audit endpoint is tripped and posts are being dropped
// - ErrInvalidInput: a required field is missing
var (
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("unavailable")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrCircuitOpen     = errors.New("circuit open")
	ErrInvalidInput    = errors.New("invalid input")
)
