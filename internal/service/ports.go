package service

import (
	"context"

	"rental/internal/domain"
)

// VehicleClient is the slice of the vehicle directory the orchestrator needs.
type VehicleClient interface {
	Get(ctx context.Context, vehicleID string) (*domain.VehicleInfo, error)
	GetVehicleType(ctx context.Context, typeID string) (*domain.VehicleType, error)
	SetStatus(ctx context.Context, vehicleID string, status domain.VehicleStatus) error
}

// DeviceClient dispatches lock/unlock commands to the device bound to a
// vehicle. Success means the dispatcher accepted the command.
type DeviceClient interface {
	SendCommand(ctx context.Context, vehicleID string, command domain.CommandType) error
}

// PaymentClient is the slice of the payment processor the orchestrator needs.
type PaymentClient interface {
	GetDefaultMethod(ctx context.Context, userID string) (*domain.PaymentMethod, error)
	CreatePayment(ctx context.Context, tripID string, amount float64, currency, methodID string) (*domain.Payment, error)
}
