package redis

import "context"

// PricingCacheInterface defines the read-through cache for vehicle-type
// pricing lookups.
type PricingCacheInterface interface {
	GetVehicleType(ctx context.Context, typeID string) (*CachedVehicleType, error)
	SetVehicleType(ctx context.Context, vt *CachedVehicleType) error
}

// PositionStoreInterface defines the live-position operations for vehicles
// on an active trip.
type PositionStoreInterface interface {
	UpdatePosition(ctx context.Context, vehicleID string, lat, lon float64) error
	GetPosition(ctx context.Context, vehicleID string) (*VehiclePosition, error)
	RemovePosition(ctx context.Context, vehicleID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PricingCacheInterface  = (*PricingCache)(nil)
	_ PositionStoreInterface = (*PositionStore)(nil)
)
