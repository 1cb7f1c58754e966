// Package repository contains the MySQL data access layer.  Repositories
// return the sentinel errors below so services can tell business outcomes
// apart from infrastructure failures, which are returned wrapped.
package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup, including
	// rows that exist but belong to another user.
	ErrNotFound = errors.New("repository: not found")

	// ErrSlotUnavailable is returned by the conditional slot update when no
	// free slot matches the requested code and vehicle type.
	ErrSlotUnavailable = errors.New("repository: slot unavailable")

	// ErrStateConflict is returned when a conditional state transition did
	// not match because the row already left the expected state.
	ErrStateConflict = errors.New("repository: state conflict")

	// ErrEmailExists is returned when registering an email twice.
	ErrEmailExists = errors.New("repository: email already exists")
)
