package client

import (
	"context"
	"net/http"
	"time"

	"rental/internal/domain"
)

// DeviceClient talks to the device command dispatcher. A successful call
// means the dispatcher accepted the command, not that the device executed it.
type DeviceClient struct {
	httpClient
}

// NewDeviceClient creates a device dispatcher client.
func NewDeviceClient(baseURL string, timeout time.Duration) *DeviceClient {
	return &DeviceClient{newHTTPClient(baseURL, timeout)}
}

type sendCommandRequest struct {
	CommandType string `json:"command_type"`
}

// SendCommand dispatches an unlock or lock command to the device bound to
// the vehicle.
func (c *DeviceClient) SendCommand(ctx context.Context, vehicleID string, command domain.CommandType) error {
	return c.doJSON(ctx, "device.send_command", http.MethodPost,
		"/api/v1/vehicles/"+vehicleID+"/commands", sendCommandRequest{CommandType: string(command)}, nil)
}
