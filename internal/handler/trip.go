package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rental/internal/auth"
	"rental/internal/domain"
	"rental/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// TripResponse is the HTTP representation of a trip.
type TripResponse struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	VehicleID       string   `json:"vehicle_id"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time,omitempty"`
	StartLatitude   float64  `json:"start_latitude"`
	StartLongitude  float64  `json:"start_longitude"`
	EndLatitude     *float64 `json:"end_latitude,omitempty"`
	EndLongitude    *float64 `json:"end_longitude,omitempty"`
	StartStationID  string   `json:"start_station_id,omitempty"`
	EndStationID    string   `json:"end_station_id,omitempty"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	BaseFare        *float64 `json:"base_fare,omitempty"`
	DistanceFare    *float64 `json:"distance_fare,omitempty"`
	TimeFare        *float64 `json:"time_fare,omitempty"`
	TotalFare       *float64 `json:"total_fare,omitempty"`
	Status          string   `json:"status"`
	PaymentState    string   `json:"payment_state,omitempty"`
	CancelReason    string   `json:"cancellation_reason,omitempty"`
	Rating          int      `json:"rating,omitempty"`
	Review          string   `json:"review,omitempty"`
}

// PaymentInfo contains payment details in the response.
type PaymentInfo struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

func toTripResponse(trip *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:             trip.ID,
		UserID:         trip.UserID,
		VehicleID:      trip.VehicleID,
		StartTime:      trip.StartTime.Format(time.RFC3339),
		StartLatitude:  trip.StartLatitude,
		StartLongitude: trip.StartLongitude,
		StartStationID: trip.StartStationID,
		EndStationID:   trip.EndStationID,
		Status:         string(trip.Status),
		PaymentState:   string(trip.PaymentState),
		CancelReason:   trip.CancellationReason,
		Rating:         trip.Rating,
		Review:         trip.Review,
	}

	if !trip.EndTime.IsZero() {
		resp.EndTime = trip.EndTime.Format(time.RFC3339)
	}
	if trip.Status == domain.TripStatusCompleted {
		resp.EndLatitude = &trip.EndLatitude
		resp.EndLongitude = &trip.EndLongitude
		resp.DistanceKm = &trip.DistanceKm
		resp.DurationMinutes = &trip.DurationMinutes
		resp.BaseFare = &trip.BaseFare
		resp.DistanceFare = &trip.DistanceFare
		resp.TimeFare = &trip.TimeFare
		resp.TotalFare = &trip.TotalFare
	}

	return resp
}

// caller returns the authenticated identity; the auth middleware guarantees
// it is present on every /v1 route.
func caller(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}

// ownsOrAdmin checks that the caller owns the trip or is an admin.
func ownsOrAdmin(c *gin.Context, trip *domain.Trip) bool {
	id := caller(c)
	if trip.UserID == id.UserID || id.IsAdmin() {
		return true
	}
	c.JSON(http.StatusForbidden, ErrorResponse{Error: "trip belongs to another user"})
	return false
}

// loadOwnedTrip fetches the trip and enforces ownership; on failure it has
// already written the response.
func (h *TripHandler) loadOwnedTrip(c *gin.Context) (*domain.Trip, bool) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !ownsOrAdmin(c, trip) {
		return nil, false
	}
	return trip, true
}

// StartTripRequest is the body for POST /v1/trips/start.
type StartTripRequest struct {
	VehicleID      string  `json:"vehicle_id" binding:"required"`
	StartLatitude  float64 `json:"start_latitude" binding:"required"`
	StartLongitude float64 `json:"start_longitude" binding:"required"`
	StartStationID string  `json:"start_station_id"`
}

// StartTrip handles POST /v1/trips/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	trip, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		UserID:         caller(c).UserID,
		VehicleID:      req.VehicleID,
		StartLatitude:  req.StartLatitude,
		StartLongitude: req.StartLongitude,
		StartStationID: req.StartStationID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTripResponse(trip))
}

// EndTripRequest is the body for POST /v1/trips/:id/end.
type EndTripRequest struct {
	EndLatitude  float64 `json:"end_latitude" binding:"required"`
	EndLongitude float64 `json:"end_longitude" binding:"required"`
	EndStationID string  `json:"end_station_id"`
}

// EndTripResponse is the response for POST /v1/trips/:id/end.
type EndTripResponse struct {
	Trip    TripResponse `json:"trip"`
	Payment *PaymentInfo `json:"payment,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// EndTrip handles POST /v1/trips/:id/end
func (h *TripHandler) EndTrip(c *gin.Context) {
	var req EndTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	result, err := h.tripService.EndTrip(c.Request.Context(), service.EndTripRequest{
		TripID:       c.Param("id"),
		EndLatitude:  req.EndLatitude,
		EndLongitude: req.EndLongitude,
		EndStationID: req.EndStationID,
	})
	if err != nil && (result == nil || result.Trip == nil) {
		respondError(c, err)
		return
	}

	resp := EndTripResponse{Trip: toTripResponse(result.Trip)}
	if result.Payment != nil {
		resp.Payment = &PaymentInfo{
			ID:       result.Payment.ID,
			Amount:   result.Payment.Amount,
			Currency: result.Payment.Currency,
			Status:   string(result.Payment.Status),
		}
	}

	// The trip completed but the fare was not collected: surface the billing
	// condition with the completed trip attached.
	if err != nil {
		resp.Error = err.Error()
		c.JSON(mapErrorToHTTPStatus(err), resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelTripRequest is the body for POST /v1/trips/:id/cancel.
type CancelTripRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	if err := h.tripService.CancelTrip(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "trip cancelled"})
}

// RateTripRequest is the body for POST /v1/trips/:id/rate.
type RateTripRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Review string `json:"review"`
}

// RateTrip handles POST /v1/trips/:id/rate
func (h *TripHandler) RateTrip(c *gin.Context) {
	var req RateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	if err := h.tripService.RateTrip(c.Request.Context(), c.Param("id"), req.Rating, req.Review); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "trip rated"})
}

// AddLocationRequest is the body for POST /v1/trips/:id/locations.
type AddLocationRequest struct {
	Latitude     float64 `json:"latitude" binding:"required"`
	Longitude    float64 `json:"longitude" binding:"required"`
	Speed        int     `json:"speed"`
	BatteryLevel int     `json:"battery_level"`
}

// AddLocation handles POST /v1/trips/:id/locations
func (h *TripHandler) AddLocation(c *gin.Context) {
	var req AddLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	err := h.tripService.AddLocation(c.Request.Context(), service.AddLocationRequest{
		TripID:       c.Param("id"),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Speed:        req.Speed,
		BatteryLevel: req.BatteryLevel,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "location added"})
}

// TripLocationResponse is one breadcrumb in a trip's location history.
type TripLocationResponse struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Speed        int     `json:"speed,omitempty"`
	BatteryLevel int     `json:"battery_level,omitempty"`
	Timestamp    string  `json:"timestamp"`
}

// GetLocations handles GET /v1/trips/:id/locations
func (h *TripHandler) GetLocations(c *gin.Context) {
	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	locs, err := h.tripService.GetTripLocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]TripLocationResponse, 0, len(locs))
	for _, loc := range locs {
		resp = append(resp, TripLocationResponse{
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Speed:        loc.Speed,
			BatteryLevel: loc.BatteryLevel,
			Timestamp:    loc.Timestamp.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetLivePosition handles GET /v1/trips/:id/position
func (h *TripHandler) GetLivePosition(c *gin.Context) {
	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	pos, err := h.tripService.GetLivePosition(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if pos == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no position reported"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicle_id": pos.VehicleID,
		"latitude":   pos.Lat,
		"longitude":  pos.Lon,
	})
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, ok := h.loadOwnedTrip(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

// GetActiveTrip handles GET /v1/trips/active
func (h *TripHandler) GetActiveTrip(c *gin.Context) {
	trip, err := h.tripService.GetActiveTripByUser(c.Request.Context(), caller(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if trip == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no active trip"})
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

// GetMyTrips handles GET /v1/trips/my-trips
func (h *TripHandler) GetMyTrips(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	trips, err := h.tripService.ListTripsByUser(c.Request.Context(), caller(c).UserID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		resp = append(resp, toTripResponse(trip))
	}
	c.JSON(http.StatusOK, resp)
}

// GetBillingPending handles GET /v1/trips/billing-pending (admin only):
// the operator queue of completed trips with uncollected fares.
func (h *TripHandler) GetBillingPending(c *gin.Context) {
	trips, err := h.tripService.ListBillingPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		resp = append(resp, toTripResponse(trip))
	}
	c.JSON(http.StatusOK, resp)
}
