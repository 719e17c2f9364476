package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrActiveTripExists is returned when the one-active-trip-per-user
	// constraint rejects an insert.
	ErrActiveTripExists = errors.New("user already has an active trip")

	// ErrNotActive is returned when a guarded transition finds the trip
	// outside the active status.
	ErrNotActive = errors.New("trip is not active")

	// ErrNotCompleted is returned when a rating is attached to a trip that
	// has not completed.
	ErrNotCompleted = errors.New("trip is not completed")
)
