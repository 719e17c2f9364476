package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rental/internal/client"
	"rental/internal/domain"
	"rental/internal/fare"
	"rental/internal/redis"
	"rental/internal/repository"
	"rental/internal/saga"
)

// TripService orchestrates the trip lifecycle across the vehicle directory,
// the device dispatcher, the payment processor and the trip store. There is
// no shared transaction across those collaborators: Start and End run as
// sagas with explicit compensation and reconciliation logging.
type TripService struct {
	tripRepo     repository.TripRepository
	vehicles     VehicleClient
	devices      DeviceClient
	payments     PaymentClient
	pricingCache redis.PricingCacheInterface
	positions    redis.PositionStoreInterface
	currency     string
}

// NewTripService creates a new TripService.
func NewTripService(
	tripRepo repository.TripRepository,
	vehicles VehicleClient,
	devices DeviceClient,
	payments PaymentClient,
	pricingCache redis.PricingCacheInterface,
	positions redis.PositionStoreInterface,
	currency string,
) *TripService {
	return &TripService{
		tripRepo:     tripRepo,
		vehicles:     vehicles,
		devices:      devices,
		payments:     payments,
		pricingCache: pricingCache,
		positions:    positions,
		currency:     currency,
	}
}

// StartTripRequest contains the parameters for starting a trip.
type StartTripRequest struct {
	UserID         string
	VehicleID      string
	StartLatitude  float64
	StartLongitude float64
	StartStationID string
}

// StartTrip unlocks a vehicle for a rider and creates the trip record.
//
// The local guards (one active trip per user) run before any collaborator
// call, so they fail with no side effects. The external effects run as a
// saga: marking the vehicle in_use can be compensated, but once the unlock
// command is dispatched there is no safe undo, so a later failure leaves the
// vehicle unlocked and is logged for reconciliation.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*domain.Trip, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if req.VehicleID == "" {
		return nil, ErrInvalidVehicleID
	}

	// Fast-path guard. The partial unique index on the trips table is the
	// authoritative check under concurrent starts.
	existing, err := s.tripRepo.GetActiveByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, repository.ErrActiveTripExists
	}

	vehicle, err := s.vehicles.Get(ctx, req.VehicleID)
	if err != nil {
		return nil, mapVehicleLookup(err)
	}

	vtype, err := s.getVehicleType(ctx, vehicle.VehicleTypeID)
	if err != nil {
		return nil, mapVehicleLookup(err)
	}

	trip := &domain.Trip{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		VehicleID:      req.VehicleID,
		StartTime:      time.Now().UTC(),
		StartLatitude:  req.StartLatitude,
		StartLongitude: req.StartLongitude,
		StartStationID: req.StartStationID,
		UnlockFee:      vtype.UnlockFee,
		RatePerMinute:  vtype.RatePerMinute,
		Status:         domain.TripStatusActive,
	}

	sagaName := fmt.Sprintf("start_trip trip=%s user=%s vehicle=%s", trip.ID, req.UserID, req.VehicleID)
	err = saga.Run(ctx, sagaName, []saga.Step{
		{
			Name: "mark_vehicle_in_use",
			Run: func(ctx context.Context) error {
				return s.vehicles.SetStatus(ctx, req.VehicleID, domain.VehicleStatusInUse)
			},
			Compensate: func(ctx context.Context) error {
				return s.vehicles.SetStatus(ctx, req.VehicleID, domain.VehicleStatusAvailable)
			},
		},
		{
			// Once the dispatcher has accepted the unlock there is no safe
			// automatic undo: the rider may already be riding.
			Name:  "unlock_device",
			Pivot: true,
			Run: func(ctx context.Context) error {
				return s.devices.SendCommand(ctx, req.VehicleID, domain.CommandUnlock)
			},
		},
		{
			Name: "create_trip",
			Run: func(ctx context.Context) error {
				return s.tripRepo.CreateActive(ctx, trip)
			},
		},
	})
	if err != nil {
		var sagaErr *saga.Error
		if errors.As(err, &sagaErr) {
			return nil, sagaErr.Err
		}
		return nil, err
	}

	return trip, nil
}

// EndTripRequest contains the parameters for ending a trip.
type EndTripRequest struct {
	TripID       string
	EndLatitude  float64
	EndLongitude float64
	EndStationID string
}

// EndTripResponse contains the result of ending a trip. Payment is nil when
// the billing step did not produce a payment record.
type EndTripResponse struct {
	Trip    *domain.Trip
	Payment *domain.Payment
}

// EndTrip completes a trip, bills the fare and returns the vehicle to the
// fleet.
//
// The completed transition is the pivot: it happens before payment, and
// status is monotone, so a payment failure leaves the trip completed with
// payment state billing_pending for operator follow-up instead of reverting
// it to active. Failures releasing or locking the vehicle after a successful
// payment are reconciliation candidates and do not fail the call.
func (s *TripService) EndTrip(ctx context.Context, req EndTripRequest) (*EndTripResponse, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsActive() {
		return nil, repository.ErrNotActive
	}

	endTime := time.Now().UTC()
	breakdown := fare.Calculate(
		trip.StartLatitude, trip.StartLongitude,
		req.EndLatitude, req.EndLongitude,
		trip.StartTime, endTime,
		trip.UnlockFee, trip.RatePerMinute,
	)
	if breakdown.ClockSkew {
		log.Printf("DATA-QUALITY trip=%s end_time %s precedes start_time %s, duration clamped to zero",
			trip.ID, endTime.Format(time.RFC3339), trip.StartTime.Format(time.RFC3339))
	}

	resp := &EndTripResponse{}

	sagaName := fmt.Sprintf("end_trip trip=%s user=%s vehicle=%s", trip.ID, trip.UserID, trip.VehicleID)
	err = saga.Run(ctx, sagaName, []saga.Step{
		{
			Name:  "complete_trip",
			Pivot: true,
			Run: func(ctx context.Context) error {
				completed, err := s.tripRepo.CompleteActive(ctx, trip.ID, repository.Completion{
					EndTime:         endTime,
					EndLatitude:     req.EndLatitude,
					EndLongitude:    req.EndLongitude,
					EndStationID:    req.EndStationID,
					DistanceKm:      breakdown.DistanceKm,
					DurationMinutes: breakdown.DurationMinutes,
					BaseFare:        breakdown.BaseFare,
					DistanceFare:    breakdown.DistanceFare,
					TimeFare:        breakdown.TimeFare,
					TotalFare:       breakdown.TotalFare,
				})
				if err != nil {
					return err
				}
				resp.Trip = completed
				return nil
			},
		},
		{
			Name: "collect_payment",
			Run: func(ctx context.Context) error {
				method, err := s.payments.GetDefaultMethod(ctx, trip.UserID)
				if err != nil {
					var clientErr *client.Error
					if errors.As(err, &clientErr) && clientErr.NotFound() {
						return ErrNoPaymentMethod
					}
					return err
				}

				payment, err := s.payments.CreatePayment(ctx, trip.ID, resp.Trip.TotalFare, s.currency, method.ID)
				if err != nil {
					return err
				}
				if payment.Status == domain.PaymentStatusFailed {
					return fmt.Errorf("%w: payment %s declined", ErrBillingPending, payment.ID)
				}
				resp.Payment = payment
				return nil
			},
		},
		{
			Name: "record_billing",
			Run: func(ctx context.Context) error {
				if err := s.tripRepo.SetPaymentState(ctx, trip.ID, domain.PaymentStatePaid); err != nil {
					return err
				}
				resp.Trip.PaymentState = domain.PaymentStatePaid
				return nil
			},
		},
		{
			Name: "release_vehicle",
			Run: func(ctx context.Context) error {
				return s.vehicles.SetStatus(ctx, trip.VehicleID, domain.VehicleStatusAvailable)
			},
		},
		{
			Name: "lock_device",
			Run: func(ctx context.Context) error {
				return s.devices.SendCommand(ctx, trip.VehicleID, domain.CommandLock)
			},
		},
	})

	s.clearPosition(ctx, trip.VehicleID)

	if err == nil {
		return resp, nil
	}

	var sagaErr *saga.Error
	if !errors.As(err, &sagaErr) {
		return nil, err
	}

	switch sagaErr.Step {
	case "complete_trip":
		// Nothing committed; the guard errors pass through unchanged.
		return nil, sagaErr.Err

	case "collect_payment":
		// The trip stays completed; the unpaid fare becomes a first-class
		// billing_pending state for the operator queue.
		s.markBillingPending(ctx, resp.Trip)
		if errors.Is(sagaErr.Err, ErrNoPaymentMethod) {
			return resp, ErrNoPaymentMethod
		}
		return resp, ErrBillingPending

	default:
		// record_billing, release_vehicle or lock_device failed after the
		// fare was collected. The saga has logged the reconciliation
		// candidate; the rider's trip ended successfully.
		return resp, nil
	}
}

// markBillingPending is best effort: the saga has already logged the billing
// failure with the trip id, so a store error here only loses the queryable
// flag, not the audit trail.
func (s *TripService) markBillingPending(ctx context.Context, trip *domain.Trip) {
	if err := s.tripRepo.SetPaymentState(ctx, trip.ID, domain.PaymentStateBillingPending); err != nil {
		log.Printf("RECONCILE trip=%s failed to record billing_pending state: %v", trip.ID, err)
		return
	}
	trip.PaymentState = domain.PaymentStateBillingPending
}

// CancelTrip abandons an active trip without billing. No collaborator calls:
// the vehicle was never ridden away, and the directory state is reconciled
// by the fleet side.
func (s *TripService) CancelTrip(ctx context.Context, tripID, reason string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if err := s.tripRepo.CancelActive(ctx, tripID, reason); err != nil {
		return err
	}

	s.clearPosition(ctx, trip.VehicleID)
	return nil
}

// RateTrip attaches a rating and optional review to a completed trip.
// Re-rating overwrites the previous values.
func (s *TripService) RateTrip(ctx context.Context, tripID string, rating int, review string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	return s.tripRepo.AttachRating(ctx, tripID, rating, review)
}

// AddLocationRequest contains one trip breadcrumb.
type AddLocationRequest struct {
	TripID       string
	Latitude     float64
	Longitude    float64
	Speed        int
	BatteryLevel int
}

// AddLocation appends a breadcrumb to a trip and refreshes the vehicle's
// live position.
func (s *TripService) AddLocation(ctx context.Context, req AddLocationRequest) error {
	if req.TripID == "" {
		return ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return err
	}

	loc := &domain.TripLocation{
		ID:           uuid.New().String(),
		TripID:       trip.ID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Speed:        req.Speed,
		BatteryLevel: req.BatteryLevel,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.tripRepo.AddLocation(ctx, loc); err != nil {
		return err
	}

	if s.positions != nil && trip.IsActive() {
		if err := s.positions.UpdatePosition(ctx, trip.VehicleID, req.Latitude, req.Longitude); err != nil {
			log.Printf("trip=%s failed to update live position for vehicle %s: %v", trip.ID, trip.VehicleID, err)
		}
	}
	return nil
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	return s.tripRepo.GetByID(ctx, tripID)
}

// GetActiveTripByUser retrieves the user's active trip, or nil if none.
func (s *TripService) GetActiveTripByUser(ctx context.Context, userID string) (*domain.Trip, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.tripRepo.GetActiveByUser(ctx, userID)
}

// ListTripsByUser returns the user's trip history, newest first.
func (s *TripService) ListTripsByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Trip, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.tripRepo.ListByUser(ctx, userID, page, pageSize)
}

// GetTripLocations returns a trip's breadcrumbs in timestamp order.
func (s *TripService) GetTripLocations(ctx context.Context, tripID string) ([]*domain.TripLocation, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if _, err := s.tripRepo.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.tripRepo.GetLocations(ctx, tripID)
}

// GetLivePosition returns the last reported position of the vehicle on a
// trip, or nil when none has been reported.
func (s *TripService) GetLivePosition(ctx context.Context, tripID string) (*redis.VehiclePosition, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if s.positions == nil {
		return nil, nil
	}
	return s.positions.GetPosition(ctx, trip.VehicleID)
}

// ListBillingPending returns completed trips whose fare is still uncollected.
func (s *TripService) ListBillingPending(ctx context.Context) ([]*domain.Trip, error) {
	return s.tripRepo.ListBillingPending(ctx)
}

// getVehicleType reads through the pricing cache.
func (s *TripService) getVehicleType(ctx context.Context, typeID string) (*domain.VehicleType, error) {
	if s.pricingCache != nil {
		cached, err := s.pricingCache.GetVehicleType(ctx, typeID)
		if err != nil {
			log.Printf("pricing cache read failed for vehicle type %s: %v", typeID, err)
		}
		if cached != nil {
			return &domain.VehicleType{
				ID:            cached.ID,
				Name:          cached.Name,
				UnlockFee:     cached.UnlockFee,
				RatePerMinute: cached.RatePerMinute,
			}, nil
		}
	}

	vtype, err := s.vehicles.GetVehicleType(ctx, typeID)
	if err != nil {
		return nil, err
	}

	if s.pricingCache != nil {
		err := s.pricingCache.SetVehicleType(ctx, &redis.CachedVehicleType{
			ID:            vtype.ID,
			Name:          vtype.Name,
			UnlockFee:     vtype.UnlockFee,
			RatePerMinute: vtype.RatePerMinute,
		})
		if err != nil {
			log.Printf("pricing cache write failed for vehicle type %s: %v", typeID, err)
		}
	}
	return vtype, nil
}

// clearPosition drops the live position once a trip leaves the active state.
func (s *TripService) clearPosition(ctx context.Context, vehicleID string) {
	if s.positions == nil {
		return
	}
	if err := s.positions.RemovePosition(context.WithoutCancel(ctx), vehicleID); err != nil {
		log.Printf("failed to clear live position for vehicle %s: %v", vehicleID, err)
	}
}

// mapVehicleLookup folds a directory 404 into the service-level not-found.
func mapVehicleLookup(err error) error {
	var clientErr *client.Error
	if errors.As(err, &clientErr) && clientErr.NotFound() {
		return ErrVehicleNotFound
	}
	return err
}
