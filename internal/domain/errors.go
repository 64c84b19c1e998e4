package domain

import "errors"

// Sentinel errors shared across services and handlers. Handlers translate
// these into HTTP status codes; everything else is an internal error.
var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredential  = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrNotFound           = errors.New("not found")
	ErrInvalidRecipient   = errors.New("no valid recipients")
	ErrNotificationFailed = errors.New("notification delivery failed")
)
