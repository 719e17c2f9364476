package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Vehicle-type pricing changes rarely, and a trip freezes its pricing at
// start anyway, so a short TTL is purely a latency optimisation.
const VehicleTypeCacheTTL = 5 * time.Minute

const vehicleTypeCachePrefix = "cache:vehicle_type:"

// CachedVehicleType is a cached vehicle-type pricing record.
type CachedVehicleType struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	UnlockFee     float64 `json:"unlock_fee"`
	RatePerMinute float64 `json:"rate_per_minute"`
}

// PricingCache fronts vehicle-type lookups against the vehicle directory.
type PricingCache struct {
	client *redis.Client
}

// NewPricingCache creates a new PricingCache.
func NewPricingCache(client *redis.Client) *PricingCache {
	return &PricingCache{client: client}
}

// GetVehicleType retrieves a vehicle type from cache. Returns nil on miss.
func (s *PricingCache) GetVehicleType(ctx context.Context, typeID string) (*CachedVehicleType, error) {
	data, err := s.client.Get(ctx, vehicleTypeCachePrefix+typeID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var vt CachedVehicleType
	if err := json.Unmarshal(data, &vt); err != nil {
		return nil, err
	}
	return &vt, nil
}

// SetVehicleType stores a vehicle type in cache.
func (s *PricingCache) SetVehicleType(ctx context.Context, vt *CachedVehicleType) error {
	data, err := json.Marshal(vt)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, vehicleTypeCachePrefix+vt.ID, data, VehicleTypeCacheTTL).Err()
}
