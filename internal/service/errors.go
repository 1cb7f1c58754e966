package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSlotUnavailable is returned when no free slot matches the
	// requested code and vehicle type.
	ErrSlotUnavailable = errors.New("slot not available")

	// ErrNotFound is returned when a booking does not exist or belongs to
	// another user.  The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("booking not found")

	// ErrAlreadyCompleted is returned when closing a booking that is no
	// longer active.
	ErrAlreadyCompleted = errors.New("booking already completed")

	// ErrSignatureMismatch is returned when a payment callback signature
	// does not match the one computed server side.
	ErrSignatureMismatch = errors.New("payment verification failed")

	// ErrAlreadyPaid is returned when asking to pay a booking whose payment
	// has already been verified.
	ErrAlreadyPaid = errors.New("booking already paid")

	// ErrPaymentRejected is returned when the gateway refuses to create an
	// order for a request the service considered valid.
	ErrPaymentRejected = errors.New("payment gateway rejected the request")

	// ErrTransient wraps store and gateway outages.  It is the only error
	// callers may retry automatically.
	ErrTransient = errors.New("temporary dependency failure")
)

// transient marks err as a retryable dependency failure while keeping the
// original error in the chain for logging.
func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// invalid builds an ErrInvalidInput with a client safe reason.
func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
