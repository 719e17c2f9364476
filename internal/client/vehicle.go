package client

import (
	"context"
	"net/http"
	"time"

	"rental/internal/domain"
)

// VehicleClient talks to the vehicle directory.
type VehicleClient struct {
	httpClient
}

// NewVehicleClient creates a vehicle directory client.
func NewVehicleClient(baseURL string, timeout time.Duration) *VehicleClient {
	return &VehicleClient{newHTTPClient(baseURL, timeout)}
}

type vehicleResponse struct {
	ID            string `json:"id"`
	VehicleTypeID string `json:"vehicle_type_id"`
	Status        string `json:"status"`
}

type vehicleTypeResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	UnlockFee     float64 `json:"unlock_fee"`
	RatePerMinute float64 `json:"rate_per_minute"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// Get fetches a vehicle record.
func (c *VehicleClient) Get(ctx context.Context, vehicleID string) (*domain.VehicleInfo, error) {
	var resp vehicleResponse
	if err := c.doJSON(ctx, "vehicle.get", http.MethodGet, "/api/v1/vehicles/"+vehicleID, nil, &resp); err != nil {
		return nil, err
	}
	return &domain.VehicleInfo{
		ID:            resp.ID,
		VehicleTypeID: resp.VehicleTypeID,
		Status:        domain.VehicleStatus(resp.Status),
	}, nil
}

// GetVehicleType fetches the pricing parameters of a vehicle type.
func (c *VehicleClient) GetVehicleType(ctx context.Context, typeID string) (*domain.VehicleType, error) {
	var resp vehicleTypeResponse
	if err := c.doJSON(ctx, "vehicle.get_type", http.MethodGet, "/api/v1/vehicle-types/"+typeID, nil, &resp); err != nil {
		return nil, err
	}
	return &domain.VehicleType{
		ID:            resp.ID,
		Name:          resp.Name,
		UnlockFee:     resp.UnlockFee,
		RatePerMinute: resp.RatePerMinute,
	}, nil
}

// SetStatus updates a vehicle's status in the directory.
func (c *VehicleClient) SetStatus(ctx context.Context, vehicleID string, status domain.VehicleStatus) error {
	return c.doJSON(ctx, "vehicle.set_status", http.MethodPut,
		"/api/v1/vehicles/"+vehicleID+"/status", setStatusRequest{Status: string(status)}, nil)
}
