package client

import (
	"context"
	"net/http"
	"time"

	"rental/internal/domain"
)

// PaymentClient talks to the payment processor.
type PaymentClient struct {
	httpClient
}

// NewPaymentClient creates a payment processor client.
func NewPaymentClient(baseURL string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{newHTTPClient(baseURL, timeout)}
}

type paymentMethodResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	IsDefault bool   `json:"is_default"`
}

type createPaymentRequest struct {
	TripID   string  `json:"trip_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	MethodID string  `json:"payment_method_id"`
}

type paymentResponse struct {
	ID       string  `json:"id"`
	TripID   string  `json:"trip_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	MethodID string  `json:"payment_method_id"`
	Status   string  `json:"status"`
}

// GetDefaultMethod fetches the user's default stored payment method.
func (c *PaymentClient) GetDefaultMethod(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	var resp paymentMethodResponse
	if err := c.doJSON(ctx, "payment.get_default_method", http.MethodGet,
		"/api/v1/users/"+userID+"/payment-methods/default", nil, &resp); err != nil {
		return nil, err
	}
	return &domain.PaymentMethod{
		ID:        resp.ID,
		UserID:    resp.UserID,
		IsDefault: resp.IsDefault,
	}, nil
}

// CreatePayment creates a payment record for a trip's total fare.
func (c *PaymentClient) CreatePayment(ctx context.Context, tripID string, amount float64, currency, methodID string) (*domain.Payment, error) {
	var resp paymentResponse
	req := createPaymentRequest{
		TripID:   tripID,
		Amount:   amount,
		Currency: currency,
		MethodID: methodID,
	}
	if err := c.doJSON(ctx, "payment.create", http.MethodPost, "/api/v1/payments", req, &resp); err != nil {
		return nil, err
	}
	return &domain.Payment{
		ID:       resp.ID,
		TripID:   resp.TripID,
		Amount:   resp.Amount,
		Currency: resp.Currency,
		MethodID: resp.MethodID,
		Status:   domain.PaymentStatus(resp.Status),
	}, nil
}
