package repository

import (
	"context"
	"time"

	"rental/internal/domain"
)

// Completion carries the end-of-trip fields written atomically at the
// active→completed transition.
type Completion struct {
	EndTime         time.Time
	EndLatitude     float64
	EndLongitude    float64
	EndStationID    string
	DistanceKm      float64
	DurationMinutes int
	BaseFare        float64
	DistanceFare    float64
	TimeFare        float64
	TotalFare       float64
}

// TripRepository defines the persistence operations for trips and their
// location breadcrumbs.
type TripRepository interface {
	// CreateActive persists a new trip in active status. The storage layer
	// enforces at most one active trip per user; a violation returns
	// ErrActiveTripExists. No check-then-insert races here.
	CreateActive(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetActiveByUser retrieves the user's active trip, or nil if none.
	GetActiveByUser(ctx context.Context, userID string) (*domain.Trip, error)

	// CompleteActive transitions an active trip to completed, writing the
	// completion fields in the same statement. Returns ErrNotActive when the
	// trip exists but is no longer active, ErrNotFound when it never did.
	CompleteActive(ctx context.Context, tripID string, c Completion) (*domain.Trip, error)

	// CancelActive transitions an active trip to cancelled with a reason.
	// Same guards as CompleteActive.
	CancelActive(ctx context.Context, tripID, reason string) error

	// AttachRating sets rating and review on a completed trip. Re-rating
	// overwrites (last write wins). Returns ErrNotCompleted when the trip is
	// in any other status.
	AttachRating(ctx context.Context, tripID string, rating int, review string) error

	// SetPaymentState records how a completed trip was billed.
	SetPaymentState(ctx context.Context, tripID string, state domain.PaymentState) error

	// ListByUser returns the user's trips, newest first.
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Trip, error)

	// ListBillingPending returns completed trips whose payment step failed,
	// for operator follow-up.
	ListBillingPending(ctx context.Context) ([]*domain.Trip, error)

	// AddLocation appends a breadcrumb to a trip.
	AddLocation(ctx context.Context, loc *domain.TripLocation) error

	// GetLocations returns a trip's breadcrumbs in timestamp order.
	GetLocations(ctx context.Context, tripID string) ([]*domain.TripLocation, error)
}
