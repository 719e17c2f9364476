package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental/internal/domain"
	"rental/internal/repository"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// TRIP END ORCHESTRATION
// ──────────────────────────────────────────────

// addActiveTrip seeds an active trip that started eight minutes ago with the
// reference scooter pricing.
func (f *fixture) addActiveTrip(tripID, userID, vehicleID string) {
	f.vehicles.AddVehicle(
		&domain.VehicleInfo{ID: vehicleID, VehicleTypeID: "type-scooter", Status: domain.VehicleStatusInUse},
		&domain.VehicleType{ID: "type-scooter", Name: "scooter", UnlockFee: 1.00, RatePerMinute: 0.15},
	)
	f.trips.AddTrip(&domain.Trip{
		ID:             tripID,
		UserID:         userID,
		VehicleID:      vehicleID,
		StartTime:      time.Now().UTC().Add(-8 * time.Minute),
		StartLatitude:  52.5200,
		StartLongitude: 13.4050,
		UnlockFee:      1.00,
		RatePerMinute:  0.15,
		Status:         domain.TripStatusActive,
	})
}

func endReq(tripID string) service.EndTripRequest {
	return service.EndTripRequest{
		TripID:       tripID,
		EndLatitude:  52.5300,
		EndLongitude: 13.4150,
		EndStationID: "station-2",
	}
}

func TestEndTrip_Success(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addActiveTrip("trip-1", "user-1", "vehicle-1")
	f.payments.AddMethod("user-1", "method-1")

	resp, err := f.svc.EndTrip(context.Background(), endReq("trip-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trip := resp.Trip
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected status %s, got %s", domain.TripStatusCompleted, trip.Status)
	}
	if trip.DurationMinutes < 8 || trip.DurationMinutes > 9 {
		t.Errorf("expected around 8 billed minutes, got %d", trip.DurationMinutes)
	}
	if trip.BaseFare != 1.00 {
		t.Errorf("expected base fare 1.00, got %v", trip.BaseFare)
	}
	if trip.DistanceFare != 0 {
		t.Errorf("distance must not be priced, got %v", trip.DistanceFare)
	}
	if trip.TotalFare != trip.BaseFare+trip.TimeFare {
		t.Errorf("total %v != base %v + time %v", trip.TotalFare, trip.BaseFare, trip.TimeFare)
	}
	if trip.DistanceKm <= 0 {
		t.Errorf("expected positive distance, got %v", trip.DistanceKm)
	}
	if trip.PaymentState != domain.PaymentStatePaid {
		t.Errorf("expected payment state paid, got %q", trip.PaymentState)
	}

	if resp.Payment == nil {
		t.Fatal("expected a payment record")
	}
	if resp.Payment.Amount != trip.TotalFare {
		t.Errorf("payment amount %v != total fare %v", resp.Payment.Amount, trip.TotalFare)
	}
	if resp.Payment.Currency != "EUR" {
		t.Errorf("expected EUR, got %s", resp.Payment.Currency)
	}

	if f.vehicles.VehicleStatus("vehicle-1") != domain.VehicleStatusAvailable {
		t.Errorf("expected vehicle released, got %s", f.vehicles.VehicleStatus("vehicle-1"))
	}
	cmds := f.devices.Commands()
	if len(cmds) != 1 || cmds[0] != domain.CommandLock {
		t.Errorf("expected single lock command, got %v", cmds)
	}
}

func TestEndTrip_NoPaymentMethod_CompletesWithBillingPending(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addActiveTrip("trip-1", "user-1", "vehicle-1")
	// No payment method registered for user-1.

	resp, err := f.svc.EndTrip(context.Background(), endReq("trip-1"))
	if !errors.Is(err, service.ErrNoPaymentMethod) {
		t.Fatalf("expected ErrNoPaymentMethod, got %v", err)
	}
	if resp == nil || resp.Trip == nil {
		t.Fatal("the completed trip must be returned alongside the billing error")
	}

	stored := f.trips.GetTrip("trip-1")
	if stored.Status != domain.TripStatusCompleted {
		t.Errorf("trip must stay completed, got %s", stored.Status)
	}
	if stored.PaymentState != domain.PaymentStateBillingPending {
		t.Errorf("expected billing_pending, got %q", stored.PaymentState)
	}

	pending, _ := f.trips.ListBillingPending(context.Background())
	if len(pending) != 1 {
		t.Errorf("expected trip in the billing-pending queue, got %d entries", len(pending))
	}
}

func TestEndTrip_PaymentDeclined_CompletesWithBillingPending(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addActiveTrip("trip-1", "user-1", "vehicle-1")
	f.payments.AddMethod("user-1", "method-1")
	f.payments.DeclinePayments = true

	resp, err := f.svc.EndTrip(context.Background(), endReq("trip-1"))
	if !errors.Is(err, service.ErrBillingPending) {
		t.Fatalf("expected ErrBillingPending, got %v", err)
	}
	if resp == nil || resp.Trip == nil {
		t.Fatal("the completed trip must be returned alongside the billing error")
	}

	stored := f.trips.GetTrip("trip-1")
	if stored.Status != domain.TripStatusCompleted {
		t.Errorf("decline must not revert the trip, got %s", stored.Status)
	}
	if stored.PaymentState != domain.PaymentStateBillingPending {
		t.Errorf("expected billing_pending, got %q", stored.PaymentState)
	}
}

// Vehicle release failing after the fare was collected is a reconciliation
// case, not a rider-visible failure.
func TestEndTrip_ReleaseFailsAfterPayment_CallSucceeds(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addActiveTrip("trip-1", "user-1", "vehicle-1")
	f.payments.AddMethod("user-1", "method-1")
	f.vehicles.SetStatusError = errors.New("directory unavailable")

	resp, err := f.svc.EndTrip(context.Background(), endReq("trip-1"))
	if err != nil {
		t.Fatalf("expected success despite release failure, got %v", err)
	}
	if resp.Trip.PaymentState != domain.PaymentStatePaid {
		t.Errorf("expected paid, got %q", resp.Trip.PaymentState)
	}
	if len(f.payments.Payments()) != 1 {
		t.Errorf("expected one payment, got %d", len(f.payments.Payments()))
	}
}

func TestEndTrip_SecondEnd_Conflicts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addActiveTrip("trip-1", "user-1", "vehicle-1")
	f.payments.AddMethod("user-1", "method-1")

	ctx := context.Background()
	first, err := f.svc.EndTrip(ctx, endReq("trip-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.svc.EndTrip(ctx, endReq("trip-1"))
	if !errors.Is(err, repository.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	// The first completion's fare fields are untouched.
	stored := f.trips.GetTrip("trip-1")
	if stored.TotalFare != first.Trip.TotalFare {
		t.Errorf("fare rewritten on repeated end: %v != %v", stored.TotalFare, first.Trip.TotalFare)
	}
	if len(f.payments.Payments()) != 1 {
		t.Errorf("expected exactly one payment, got %d", len(f.payments.Payments()))
	}
}

func TestEndTrip_UnknownTrip_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.EndTrip(context.Background(), endReq("ghost"))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.payments.CreatePaymentCallCount != 0 {
		t.Error("no payment should be attempted for an unknown trip")
	}
}

func TestEndTrip_ClearsLivePosition(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addActiveTrip("trip-1", "user-1", "vehicle-1")
	f.payments.AddMethod("user-1", "method-1")

	ctx := context.Background()
	if err := f.svc.AddLocation(ctx, service.AddLocationRequest{
		TripID:    "trip-1",
		Latitude:  52.5250,
		Longitude: 13.4100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, _ := f.positions.GetPosition(ctx, "vehicle-1")
	if pos == nil {
		t.Fatal("expected a live position while the trip is active")
	}

	if _, err := f.svc.EndTrip(ctx, endReq("trip-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos, _ = f.positions.GetPosition(ctx, "vehicle-1")
	if pos != nil {
		t.Error("live position must be cleared when the trip ends")
	}
}
