package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const vehiclePositionKey = "vehicles:positions"

// VehiclePosition is the last reported position of a vehicle on a trip.
type VehiclePosition struct {
	VehicleID string
	Lat       float64
	Lon       float64
}

// PositionStore tracks live vehicle positions in Redis. It is fed by trip
// location breadcrumbs and cleared when the trip ends or is cancelled; the
// durable breadcrumb history lives in Postgres.
type PositionStore struct {
	client *redis.Client
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(client *redis.Client) *PositionStore {
	return &PositionStore{client: client}
}

// UpdatePosition stores a vehicle's position using GEOADD.
func (s *PositionStore) UpdatePosition(ctx context.Context, vehicleID string, lat, lon float64) error {
	return s.client.GeoAdd(ctx, vehiclePositionKey, &redis.GeoLocation{
		Name:      vehicleID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

// GetPosition returns a vehicle's last reported position, or nil if the
// vehicle has none on record.
func (s *PositionStore) GetPosition(ctx context.Context, vehicleID string) (*VehiclePosition, error) {
	positions, err := s.client.GeoPos(ctx, vehiclePositionKey, vehicleID).Result()
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, nil
	}
	return &VehiclePosition{
		VehicleID: vehicleID,
		Lat:       positions[0].Latitude,
		Lon:       positions[0].Longitude,
	}, nil
}

// RemovePosition removes a vehicle's position from the geo index.
func (s *PositionStore) RemovePosition(ctx context.Context, vehicleID string) error {
	return s.client.ZRem(ctx, vehiclePositionKey, vehicleID).Err()
}
