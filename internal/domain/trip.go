package domain

import "time"

// TripStatus represents the lifecycle status of a trip.
type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// PaymentState tracks how a completed trip was billed. A trip whose payment
// step failed stays completed with state billing_pending until an operator
// settles it.
type PaymentState string

const (
	PaymentStateUnbilled       PaymentState = ""
	PaymentStatePaid           PaymentState = "paid"
	PaymentStateBillingPending PaymentState = "billing_pending"
)

// Trip represents one rental session from unlock to lock or cancellation.
//
// UnlockFee and RatePerMinute are snapshotted from the vehicle type when the
// trip starts, so later price changes never affect a trip in progress. The
// end-of-trip fields (EndTime, EndLatitude/EndLongitude, DistanceKm,
// DurationMinutes and the fare breakdown) are zero while the trip is active
// and are written exactly once at the active→completed transition.
type Trip struct {
	ID        string
	UserID    string
	VehicleID string

	StartTime time.Time
	EndTime   time.Time

	StartLatitude  float64
	StartLongitude float64
	EndLatitude    float64
	EndLongitude   float64
	StartStationID string
	EndStationID   string

	DistanceKm      float64
	DurationMinutes int

	UnlockFee     float64
	RatePerMinute float64

	BaseFare     float64
	DistanceFare float64
	TimeFare     float64
	TotalFare    float64

	Status             TripStatus
	CancellationReason string
	PaymentState       PaymentState

	Rating int
	Review string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the trip is still in progress.
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusActive
}

// TripLocation is an append-only breadcrumb recorded while a trip is in
// progress. Breadcrumbs are never updated, only inserted, and are read back
// in timestamp order.
type TripLocation struct {
	ID           string
	TripID       string
	Latitude     float64
	Longitude    float64
	Speed        int
	BatteryLevel int
	Timestamp    time.Time
}
