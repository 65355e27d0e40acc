package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrProductExists      = errors.New("product already exists")
	ErrInvalidCredentials = errors.New("invalid credentials provided")
	ErrNotFound           = errors.New("requested resource not found")

	// ErrCannotPurchase covers every rejected purchase: unknown user or
	// product, admin buyer, empty stock or insufficient coins.
	ErrCannotPurchase = errors.New("cannot purchase")

	// ErrNoTriesLeft is returned when a recommendation is requested by an
	// unknown user or one whose tries are exhausted.
	ErrNoTriesLeft = errors.New("no recommendation tries left")

	// ErrConflict signals that stored state changed between read and write.
	ErrConflict = errors.New("state changed concurrently")

	// ErrForbidden is returned when a session user acts on another user's behalf.
	ErrForbidden = errors.New("forbidden")
)
