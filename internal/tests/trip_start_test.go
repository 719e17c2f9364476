package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rental/internal/domain"
	"rental/internal/repository"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// TRIP START ORCHESTRATION
// ──────────────────────────────────────────────

// fixture bundles the orchestrator and its mocked collaborators.
type fixture struct {
	trips     *MockTripRepository
	vehicles  *MockVehicleClient
	devices   *MockDeviceClient
	payments  *MockPaymentClient
	cache     *MockPricingCache
	positions *MockPositionStore
	svc       *service.TripService
}

func newFixture() *fixture {
	f := &fixture{
		trips:     NewMockTripRepository(),
		vehicles:  NewMockVehicleClient(),
		devices:   NewMockDeviceClient(),
		payments:  NewMockPaymentClient(),
		cache:     NewMockPricingCache(),
		positions: NewMockPositionStore(),
	}
	f.svc = service.NewTripService(f.trips, f.vehicles, f.devices, f.payments, f.cache, f.positions, "EUR")
	return f
}

// addScooter registers an available scooter priced at 1.00 unlock + 0.15/min.
func (f *fixture) addScooter(vehicleID string) {
	f.vehicles.AddVehicle(
		&domain.VehicleInfo{ID: vehicleID, VehicleTypeID: "type-scooter", Status: domain.VehicleStatusAvailable},
		&domain.VehicleType{ID: "type-scooter", Name: "scooter", UnlockFee: 1.00, RatePerMinute: 0.15},
	)
}

func startReq(userID, vehicleID string) service.StartTripRequest {
	return service.StartTripRequest{
		UserID:         userID,
		VehicleID:      vehicleID,
		StartLatitude:  52.5200,
		StartLongitude: 13.4050,
		StartStationID: "station-1",
	}
}

func TestStartTrip_Success(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addScooter("vehicle-1")

	trip, err := f.svc.StartTrip(context.Background(), startReq("user-1", "vehicle-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if trip.Status != domain.TripStatusActive {
		t.Errorf("expected status %s, got %s", domain.TripStatusActive, trip.Status)
	}
	if trip.UnlockFee != 1.00 || trip.RatePerMinute != 0.15 {
		t.Errorf("pricing snapshot not frozen on trip: unlock=%v rate=%v", trip.UnlockFee, trip.RatePerMinute)
	}
	if f.vehicles.VehicleStatus("vehicle-1") != domain.VehicleStatusInUse {
		t.Errorf("expected vehicle in_use, got %s", f.vehicles.VehicleStatus("vehicle-1"))
	}

	cmds := f.devices.Commands()
	if len(cmds) != 1 || cmds[0] != domain.CommandUnlock {
		t.Errorf("expected single unlock command, got %v", cmds)
	}

	stored := f.trips.GetTrip(trip.ID)
	if stored == nil {
		t.Fatal("trip not persisted")
	}
}

func TestStartTrip_SecondStartSameUser_Conflicts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addScooter("vehicle-1")
	f.addScooter("vehicle-2")

	ctx := context.Background()
	if _, err := f.svc.StartTrip(ctx, startReq("user-1", "vehicle-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.svc.StartTrip(ctx, startReq("user-1", "vehicle-2"))
	if !errors.Is(err, repository.ErrActiveTripExists) {
		t.Fatalf("expected ErrActiveTripExists, got %v", err)
	}
}

// Concurrent starts race the fast-path check; the store constraint is the
// authoritative guard, so exactly one attempt may win.
func TestStartTrip_ConcurrentStarts_ExactlyOneWins(t *testing.T) {
	t.Parallel()

	const attempts = 10

	f := newFixture()
	for i := 0; i < attempts; i++ {
		f.addScooter(vehicleID(i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.StartTrip(context.Background(), startReq("user-1", vehicleID(i)))
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrActiveTripExists):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 successful start, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
}

func vehicleID(i int) string {
	return string(rune('a'+i)) + "-vehicle"
}

func TestStartTrip_UnknownVehicle_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.StartTrip(context.Background(), startReq("user-1", "ghost"))
	if !errors.Is(err, service.ErrVehicleNotFound) {
		t.Fatalf("expected ErrVehicleNotFound, got %v", err)
	}
	if f.devices.SendCallCount != 0 {
		t.Error("no device command should be dispatched for an unknown vehicle")
	}
}

// Unlock failure happens before the pivot, so the vehicle status change is
// compensated and nothing is persisted.
func TestStartTrip_UnlockFails_VehicleReleased(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addScooter("vehicle-1")
	f.devices.SendError = errors.New("dispatcher unavailable")

	_, err := f.svc.StartTrip(context.Background(), startReq("user-1", "vehicle-1"))
	if err == nil {
		t.Fatal("expected error")
	}

	if f.vehicles.VehicleStatus("vehicle-1") != domain.VehicleStatusAvailable {
		t.Errorf("expected vehicle compensated back to available, got %s", f.vehicles.VehicleStatus("vehicle-1"))
	}
	if got := f.vehicles.StatusHistory(); len(got) != 2 {
		t.Errorf("expected in_use then available, got %v", got)
	}
	if f.trips.CreateCallCount != 0 {
		t.Error("no trip should be persisted when unlock fails")
	}

	active, _ := f.trips.GetActiveByUser(context.Background(), "user-1")
	if active != nil {
		t.Error("user should have no active trip after a failed start")
	}
}

// A persist failure after the unlock is past the point of no return: the
// rider may already be moving, so the vehicle stays in_use and unlocked.
func TestStartTrip_PersistFailsAfterUnlock_EffectsKept(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addScooter("vehicle-1")
	f.trips.CreateError = errors.New("store unavailable")

	_, err := f.svc.StartTrip(context.Background(), startReq("user-1", "vehicle-1"))
	if err == nil {
		t.Fatal("expected error")
	}

	if f.vehicles.VehicleStatus("vehicle-1") != domain.VehicleStatusInUse {
		t.Errorf("vehicle status must not be reverted past the unlock, got %s", f.vehicles.VehicleStatus("vehicle-1"))
	}
	if got := f.vehicles.StatusHistory(); len(got) != 1 {
		t.Errorf("expected a single status change, got %v", got)
	}
}

func TestStartTrip_PricingServedFromCacheOnRepeat(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.addScooter("vehicle-1")
	f.addScooter("vehicle-2")

	ctx := context.Background()
	if _, err := f.svc.StartTrip(ctx, startReq("user-1", "vehicle-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.svc.StartTrip(ctx, startReq("user-2", "vehicle-2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.vehicles.GetTypeCallCount != 1 {
		t.Errorf("expected one directory pricing lookup, got %d", f.vehicles.GetTypeCallCount)
	}
	if f.cache.SetCallCount != 1 {
		t.Errorf("expected one cache fill, got %d", f.cache.SetCallCount)
	}
}

func TestStartTrip_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture()

	if _, err := f.svc.StartTrip(context.Background(), startReq("", "vehicle-1")); !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
	if _, err := f.svc.StartTrip(context.Background(), startReq("user-1", "")); !errors.Is(err, service.ErrInvalidVehicleID) {
		t.Errorf("expected ErrInvalidVehicleID, got %v", err)
	}
}
