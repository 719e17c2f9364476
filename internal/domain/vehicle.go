package domain

// VehicleStatus represents the current status of a vehicle in the directory.
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusInUse       VehicleStatus = "in_use"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

// VehicleInfo is the slice of a vehicle-directory record this service needs.
type VehicleInfo struct {
	ID            string
	VehicleTypeID string
	Status        VehicleStatus
}

// VehicleType carries the pricing parameters snapshotted onto a trip at start.
type VehicleType struct {
	ID            string
	Name          string
	UnlockFee     float64
	RatePerMinute float64
}

// CommandType is a device command addressed to the unit bound to a vehicle.
type CommandType string

const (
	CommandUnlock CommandType = "unlock"
	CommandLock   CommandType = "lock"
)
