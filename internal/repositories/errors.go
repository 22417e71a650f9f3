package repositories

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")

	// ErrNotFoundOrForbidden is returned by owner-scoped lookups. Absent rows and
	// rows owned by someone else are deliberately indistinguishable.
	ErrNotFoundOrForbidden = errors.New("not found or not accessible")

	ErrNoRecipients     = errors.New("message needs at least one recipient")
	ErrUnknownRecipient = errors.New("unknown recipient")
	ErrEmptyResult      = errors.New("no results")
)
