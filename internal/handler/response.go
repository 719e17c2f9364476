package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/client"
	"rental/internal/repository"
	"rental/internal/service"
)

// ErrorResponse represents an error response. UpstreamStatus is set when a
// collaborator call failed, so the caller sees the collaborator's failure
// category instead of an anonymous 500.
type ErrorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	var clientErr *client.Error
	if errors.As(err, &clientErr) {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:          clientErr.Error(),
			UpstreamStatus: clientErr.Status,
		})
		return
	}

	c.JSON(mapErrorToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrVehicleNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidRating):
		return http.StatusBadRequest

	// Conflict errors - status guards and the one-active-trip invariant
	case errors.Is(err, repository.ErrActiveTripExists),
		errors.Is(err, repository.ErrNotActive),
		errors.Is(err, repository.ErrNotCompleted):
		return http.StatusConflict

	// Billing conditions on an already-completed trip
	case errors.Is(err, service.ErrNoPaymentMethod):
		return http.StatusFailedDependency
	case errors.Is(err, service.ErrBillingPending):
		return http.StatusPaymentRequired

	default:
		return http.StatusInternalServerError
	}
}
