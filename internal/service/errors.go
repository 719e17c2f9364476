package service

import "errors"

var (
	// ErrInvalidUserID is returned when the user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidVehicleID is returned when the vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidTripID is returned when the trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrVehicleNotFound is returned when the vehicle directory has no such
	// vehicle or vehicle type.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrNoPaymentMethod is returned when the rider has no stored default
	// payment method. The trip is already completed at this point; its
	// payment state is billing_pending.
	ErrNoPaymentMethod = errors.New("no default payment method")

	// ErrBillingPending is returned when a trip completed but its payment
	// could not be collected. Distinct from a hard failure: the fare is
	// settled later by an operator workflow, never by re-ending the trip.
	ErrBillingPending = errors.New("trip completed, payment pending")
)
