package tests

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"rental/internal/client"
	"rental/internal/domain"
	"rental/internal/redis"
	"rental/internal/repository"
	"rental/internal/service"
)

// notFoundErr mimics a collaborator 404 the way the HTTP clients surface it.
func notFoundErr(op string) error {
	return &client.Error{Op: op, Status: http.StatusNotFound}
}

func paymentID(n int32) string {
	return fmt.Sprintf("payment-%d", n)
}

// Mocks must stay substitutable for the real collaborators.
var (
	_ repository.TripRepository     = (*MockTripRepository)(nil)
	_ service.VehicleClient         = (*MockVehicleClient)(nil)
	_ service.DeviceClient          = (*MockDeviceClient)(nil)
	_ service.PaymentClient         = (*MockPaymentClient)(nil)
	_ redis.PositionStoreInterface  = (*MockPositionStore)(nil)
	_ redis.PricingCacheInterface   = (*MockPricingCache)(nil)
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository. Its guards
// mirror the store's semantics: one active trip per user, monotone status
// transitions, rating only on completed trips.
type MockTripRepository struct {
	mu        sync.RWMutex
	trips     map[string]*domain.Trip
	locations map[string][]*domain.TripLocation

	// Counters for verification
	CreateCallCount          int32
	CompleteCallCount        int32
	CancelCallCount          int32
	SetPaymentStateCallCount int32

	// Error injection
	CreateError          error
	CompleteError        error
	SetPaymentStateError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips:     make(map[string]*domain.Trip),
		locations: make(map[string][]*domain.TripLocation),
	}
}

// AddTrip adds a trip to the mock repository.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

// GetTrip returns a trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

func (m *MockTripRepository) CreateActive(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Same constraint the partial unique index enforces.
	for _, t := range m.trips {
		if t.UserID == trip.UserID && t.Status == domain.TripStatusActive {
			return repository.ErrActiveTripExists
		}
	}
	copy := *trip
	m.trips[trip.ID] = &copy
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) GetActiveByUser(ctx context.Context, userID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.trips {
		if t.UserID == userID && t.Status == domain.TripStatusActive {
			copy := *t
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *MockTripRepository) CompleteActive(ctx context.Context, tripID string, c repository.Completion) (*domain.Trip, error) {
	atomic.AddInt32(&m.CompleteCallCount, 1)
	if m.CompleteError != nil {
		return nil, m.CompleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if trip.Status != domain.TripStatusActive {
		return nil, repository.ErrNotActive
	}
	trip.Status = domain.TripStatusCompleted
	trip.EndTime = c.EndTime
	trip.EndLatitude = c.EndLatitude
	trip.EndLongitude = c.EndLongitude
	trip.EndStationID = c.EndStationID
	trip.DistanceKm = c.DistanceKm
	trip.DurationMinutes = c.DurationMinutes
	trip.BaseFare = c.BaseFare
	trip.DistanceFare = c.DistanceFare
	trip.TimeFare = c.TimeFare
	trip.TotalFare = c.TotalFare
	copy := *trip
	return &copy, nil
}

func (m *MockTripRepository) CancelActive(ctx context.Context, tripID, reason string) error {
	atomic.AddInt32(&m.CancelCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	if trip.Status != domain.TripStatusActive {
		return repository.ErrNotActive
	}
	trip.Status = domain.TripStatusCancelled
	trip.CancellationReason = reason
	return nil
}

func (m *MockTripRepository) AttachRating(ctx context.Context, tripID string, rating int, review string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	if trip.Status != domain.TripStatusCompleted {
		return repository.ErrNotCompleted
	}
	trip.Rating = rating
	trip.Review = review
	return nil
}

func (m *MockTripRepository) SetPaymentState(ctx context.Context, tripID string, state domain.PaymentState) error {
	atomic.AddInt32(&m.SetPaymentStateCallCount, 1)
	if m.SetPaymentStateError != nil {
		return m.SetPaymentStateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[tripID]
	if !ok {
		return repository.ErrNotFound
	}
	trip.PaymentState = state
	return nil
}

func (m *MockTripRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0)
	for _, t := range m.trips {
		if t.UserID == userID {
			copy := *t
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})
	return result, nil
}

func (m *MockTripRepository) ListBillingPending(ctx context.Context) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0)
	for _, t := range m.trips {
		if t.PaymentState == domain.PaymentStateBillingPending {
			copy := *t
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTripRepository) AddLocation(ctx context.Context, loc *domain.TripLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[loc.TripID]; !ok {
		return repository.ErrNotFound
	}
	copy := *loc
	m.locations[loc.TripID] = append(m.locations[loc.TripID], &copy)
	return nil
}

func (m *MockTripRepository) GetLocations(ctx context.Context, tripID string) ([]*domain.TripLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TripLocation, 0, len(m.locations[tripID]))
	for _, loc := range m.locations[tripID] {
		copy := *loc
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK VEHICLE CLIENT
// ──────────────────────────────────────────────

// MockVehicleClient is a mock implementation of the vehicle directory client.
type MockVehicleClient struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.VehicleInfo
	types    map[string]*domain.VehicleType
	statuses []domain.VehicleStatus

	// Counters for verification
	GetCallCount       int32
	GetTypeCallCount   int32
	SetStatusCallCount int32

	// Error injection
	GetError       error
	SetStatusError error
	// SetStatusFailAfter fails SetStatus calls after the first N succeed.
	SetStatusFailAfter int32
}

// NewMockVehicleClient creates a new mock vehicle client.
func NewMockVehicleClient() *MockVehicleClient {
	return &MockVehicleClient{
		vehicles: make(map[string]*domain.VehicleInfo),
		types:    make(map[string]*domain.VehicleType),
	}
}

// AddVehicle registers a vehicle and its type in the mock directory.
func (m *MockVehicleClient) AddVehicle(v *domain.VehicleInfo, vt *domain.VehicleType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
	m.types[vt.ID] = vt
}

func (m *MockVehicleClient) Get(ctx context.Context, vehicleID string) (*domain.VehicleInfo, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[vehicleID]
	if !ok {
		return nil, notFoundErr("vehicle.get")
	}
	copy := *v
	return &copy, nil
}

func (m *MockVehicleClient) GetVehicleType(ctx context.Context, typeID string) (*domain.VehicleType, error) {
	atomic.AddInt32(&m.GetTypeCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	vt, ok := m.types[typeID]
	if !ok {
		return nil, notFoundErr("vehicle.get_type")
	}
	copy := *vt
	return &copy, nil
}

func (m *MockVehicleClient) SetStatus(ctx context.Context, vehicleID string, status domain.VehicleStatus) error {
	count := atomic.AddInt32(&m.SetStatusCallCount, 1)
	if m.SetStatusError != nil && (m.SetStatusFailAfter == 0 || count > m.SetStatusFailAfter) {
		return m.SetStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[vehicleID]
	if !ok {
		return notFoundErr("vehicle.set_status")
	}
	v.Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

// VehicleStatus returns the current directory status for assertions.
func (m *MockVehicleClient) VehicleStatus(vehicleID string) domain.VehicleStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vehicles[vehicleID].Status
}

// StatusHistory returns the sequence of statuses set on the directory.
func (m *MockVehicleClient) StatusHistory() []domain.VehicleStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.VehicleStatus(nil), m.statuses...)
}

// ──────────────────────────────────────────────
// MOCK DEVICE CLIENT
// ──────────────────────────────────────────────

// MockDeviceClient is a mock implementation of the device command dispatcher.
type MockDeviceClient struct {
	mu       sync.RWMutex
	commands []domain.CommandType

	// Counters for verification
	SendCallCount int32

	// Error injection
	SendError error
}

// NewMockDeviceClient creates a new mock device client.
func NewMockDeviceClient() *MockDeviceClient {
	return &MockDeviceClient{}
}

func (m *MockDeviceClient) SendCommand(ctx context.Context, vehicleID string, command domain.CommandType) error {
	atomic.AddInt32(&m.SendCallCount, 1)
	if m.SendError != nil {
		return m.SendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, command)
	return nil
}

// Commands returns the dispatched commands for assertions.
func (m *MockDeviceClient) Commands() []domain.CommandType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.CommandType(nil), m.commands...)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT CLIENT
// ──────────────────────────────────────────────

// MockPaymentClient is a mock implementation of the payment processor client.
type MockPaymentClient struct {
	mu       sync.RWMutex
	methods  map[string]*domain.PaymentMethod
	payments []*domain.Payment

	// Counters for verification
	GetMethodCallCount     int32
	CreatePaymentCallCount int32

	// Error injection
	GetMethodError     error
	CreatePaymentError error
	// DeclinePayments makes every created payment come back failed.
	DeclinePayments bool
}

// NewMockPaymentClient creates a new mock payment client.
func NewMockPaymentClient() *MockPaymentClient {
	return &MockPaymentClient{
		methods: make(map[string]*domain.PaymentMethod),
	}
}

// AddMethod registers a default payment method for a user.
func (m *MockPaymentClient) AddMethod(userID, methodID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods[userID] = &domain.PaymentMethod{ID: methodID, UserID: userID, IsDefault: true}
}

func (m *MockPaymentClient) GetDefaultMethod(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	atomic.AddInt32(&m.GetMethodCallCount, 1)
	if m.GetMethodError != nil {
		return nil, m.GetMethodError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	method, ok := m.methods[userID]
	if !ok {
		return nil, notFoundErr("payment.get_default_method")
	}
	copy := *method
	return &copy, nil
}

func (m *MockPaymentClient) CreatePayment(ctx context.Context, tripID string, amount float64, currency, methodID string) (*domain.Payment, error) {
	count := atomic.AddInt32(&m.CreatePaymentCallCount, 1)
	if m.CreatePaymentError != nil {
		return nil, m.CreatePaymentError
	}
	status := domain.PaymentStatusSuccess
	if m.DeclinePayments {
		status = domain.PaymentStatusFailed
	}
	payment := &domain.Payment{
		ID:       paymentID(count),
		TripID:   tripID,
		Amount:   amount,
		Currency: currency,
		MethodID: methodID,
		Status:   status,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, payment)
	copy := *payment
	return &copy, nil
}

// Payments returns the created payments for assertions.
func (m *MockPaymentClient) Payments() []*domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Payment(nil), m.payments...)
}

// ──────────────────────────────────────────────
// MOCK POSITION STORE
// ──────────────────────────────────────────────

// MockPositionStore is an in-memory stand-in for the Redis position store.
type MockPositionStore struct {
	mu        sync.RWMutex
	positions map[string]*redis.VehiclePosition

	UpdateCallCount int32
	RemoveCallCount int32
}

// NewMockPositionStore creates a new mock position store.
func NewMockPositionStore() *MockPositionStore {
	return &MockPositionStore{positions: make(map[string]*redis.VehiclePosition)}
}

func (m *MockPositionStore) UpdatePosition(ctx context.Context, vehicleID string, lat, lon float64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[vehicleID] = &redis.VehiclePosition{VehicleID: vehicleID, Lat: lat, Lon: lon}
	return nil
}

func (m *MockPositionStore) GetPosition(ctx context.Context, vehicleID string) (*redis.VehiclePosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[vehicleID]
	if !ok {
		return nil, nil
	}
	copy := *pos
	return &copy, nil
}

func (m *MockPositionStore) RemovePosition(ctx context.Context, vehicleID string) error {
	atomic.AddInt32(&m.RemoveCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, vehicleID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PRICING CACHE
// ──────────────────────────────────────────────

// MockPricingCache is an in-memory stand-in for the Redis pricing cache.
type MockPricingCache struct {
	mu    sync.RWMutex
	types map[string]*redis.CachedVehicleType

	GetCallCount int32
	SetCallCount int32
}

// NewMockPricingCache creates a new mock pricing cache.
func NewMockPricingCache() *MockPricingCache {
	return &MockPricingCache{types: make(map[string]*redis.CachedVehicleType)}
}

func (m *MockPricingCache) GetVehicleType(ctx context.Context, typeID string) (*redis.CachedVehicleType, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	vt, ok := m.types[typeID]
	if !ok {
		return nil, nil
	}
	copy := *vt
	return &copy, nil
}

func (m *MockPricingCache) SetVehicleType(ctx context.Context, vt *redis.CachedVehicleType) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *vt
	m.types[vt.ID] = &copy
	return nil
}
