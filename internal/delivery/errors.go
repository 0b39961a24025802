package delivery

import "errors"

var (
	// ErrInvalidInput flags missing or empty user-supplied fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden flags a sender without an approved link to the recipient.
	// It deliberately does not distinguish a missing link from an unapproved
	// one.
	ErrForbidden = errors.New("not authorized")
	// ErrStoreUnavailable flags a backing store failure or timeout. Calls
	// that fail with it are safe to retry whole.
	ErrStoreUnavailable = errors.New("store unavailable")
)
