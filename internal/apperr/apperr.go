// Package apperr defines the error taxonomy shared by services and handlers.
// Handlers map these to HTTP status codes; nothing below the transport layer
// knows about status codes.
package apperr

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrTokenKindMismatch = errors.New("token kind mismatch")
	ErrInactive          = errors.New("inactive principal")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidItemType   = errors.New("invalid item type")
	ErrItemNotFound      = errors.New("item not found")
	ErrValidation        = errors.New("validation")
)
