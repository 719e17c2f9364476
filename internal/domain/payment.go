package domain

// PaymentStatus represents the status the payment processor reports.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "completed"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentMethod is a stored payment method owned by the payment processor.
type PaymentMethod struct {
	ID        string
	UserID    string
	IsDefault bool
}

// Payment is a payment record created against a trip's total fare.
type Payment struct {
	ID       string
	TripID   string
	Amount   float64
	Currency string
	MethodID string
	Status   PaymentStatus
}
