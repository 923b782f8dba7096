package entity

import "errors"

// Error taxonomy shared by all services. Repositories and services wrap
// these sentinels so callers can classify failures with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
	ErrNotFound      = errors.New("not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrImmutable     = errors.New("record is immutable")
)
