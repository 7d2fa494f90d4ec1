package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// RideHandler handles HTTP requests for the ride lifecycle.
type RideHandler struct {
	rideService    *service.RideService
	waitingService *service.WaitingService
	policy         *service.CancellationPolicy
	coordinator    *service.AssignmentCoordinator
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(
	rideService *service.RideService,
	waitingService *service.WaitingService,
	policy *service.CancellationPolicy,
	coordinator *service.AssignmentCoordinator,
) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		waitingService: waitingService,
		policy:         policy,
		coordinator:    coordinator,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	PickupLat         float64 `json:"pickup_lat"`
	PickupLng         float64 `json:"pickup_lng"`
	DropLat           float64 `json:"drop_lat"`
	DropLng           float64 `json:"drop_lng"`
	DistanceKm        float64 `json:"distance_km"`
	DurationMin       float64 `json:"duration_min"`
	BookingType       string  `json:"booking_type"`             // DISTANCE_BASED, TIME_BASED
	TripType          string  `json:"trip_type"`                // ONE_WAY, ROUND_TRIP
	WaitingAllowed    int     `json:"waiting_allowed,omitempty"`
	PaymentMode       string  `json:"payment_mode"`             // PAY_NOW, PAY_AFTER_TRIP
	PaymentInstrument string  `json:"payment_instrument"`       // CASH, CARD, WALLET
}

// FareResponse is the itemized fare in HTTP responses.
type FareResponse struct {
	Base     float64 `json:"base"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Waiting  float64 `json:"waiting"`
	Total    float64 `json:"total"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID              string       `json:"id"`
	RiderID         string       `json:"rider_id"`
	DriverID        string       `json:"driver_id,omitempty"`
	OfferedDriverID string       `json:"offered_driver_id,omitempty"`
	PickupLat       float64      `json:"pickup_lat"`
	PickupLng       float64      `json:"pickup_lng"`
	DropLat         float64      `json:"drop_lat"`
	DropLng         float64      `json:"drop_lng"`
	DistanceKm      float64      `json:"distance_km"`
	DurationMin     float64      `json:"duration_min"`
	BookingType     string       `json:"booking_type"`
	TripType        string       `json:"trip_type"`
	WaitingAllowed  int          `json:"waiting_allowed,omitempty"`
	Fare            FareResponse `json:"fare"`
	Status          string       `json:"status"`
	PaymentMode     string       `json:"payment_mode"`
	PaymentStatus   string       `json:"payment_status"`
	CompletedAt     string       `json:"completed_at,omitempty"`
	CancelledAt     string       `json:"cancelled_at,omitempty"`
	CancelReason    string       `json:"cancel_reason,omitempty"`
	CreatedAt       string       `json:"created_at"`
}

func rideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:              r.ID,
		RiderID:         r.RiderID,
		DriverID:        r.DriverID,
		OfferedDriverID: r.OfferedDriverID,
		PickupLat:       r.PickupLat,
		PickupLng:       r.PickupLng,
		DropLat:         r.DropLat,
		DropLng:         r.DropLng,
		DistanceKm:      r.DistanceKm,
		DurationMin:     r.DurationMin,
		BookingType:     string(r.BookingType),
		TripType:        string(r.TripType),
		WaitingAllowed:  r.WaitingAllowed,
		Fare: FareResponse{
			Base:     r.Fare.Base,
			Distance: r.Fare.Distance,
			Time:     r.Fare.Time,
			Waiting:  r.Fare.Waiting,
			Total:    r.Fare.Total,
		},
		Status:        string(r.Status),
		PaymentMode:   string(r.PaymentMode),
		PaymentStatus: string(r.PaymentStatus),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if !r.CompletedAt.IsZero() {
		resp.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	if !r.CancelledAt.IsZero() {
		resp.CancelledAt = r.CancelledAt.Format(time.RFC3339)
		resp.CancelReason = r.CancelReason
	}
	return resp
}

// CreateRideResponse is the HTTP response for creating a ride.
type CreateRideResponse struct {
	Ride          RideResponse `json:"ride"`
	DriverOffered bool         `json:"driver_offered"`
	OfferedDriver string       `json:"offered_driver,omitempty"`
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		RiderID:           c.GetString("userID"),
		PickupLat:         req.PickupLat,
		PickupLng:         req.PickupLng,
		DropLat:           req.DropLat,
		DropLng:           req.DropLng,
		DistanceKm:        req.DistanceKm,
		DurationMin:       req.DurationMin,
		BookingType:       domain.BookingType(req.BookingType),
		TripType:          domain.TripType(req.TripType),
		WaitingAllowed:    req.WaitingAllowed,
		PaymentMode:       domain.PaymentMode(req.PaymentMode),
		PaymentInstrument: domain.PaymentInstrument(req.PaymentInstrument),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateRideResponse{
		Ride:          rideResponse(result.Ride),
		DriverOffered: result.DriverOffered,
		OfferedDriver: result.OfferedDriver,
	})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// GetVerificationCode handles GET /v1/rides/:id/code
func (h *RideHandler) GetVerificationCode(c *gin.Context) {
	code, err := h.rideService.GetVerificationCode(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"code": code})
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelRide handles POST /v1/rides/:id/cancel. The caller's role decides
// which cancellation path applies.
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	rideID := c.Param("id")
	actor := c.GetString("userID")

	var (
		ride *domain.Ride
		err  error
	)
	switch c.GetString("role") {
	case "driver":
		ride, err = h.policy.CancelByDriver(c.Request.Context(), rideID, actor, req.Reason)
	default:
		ride, err = h.policy.CancelByRider(c.Request.Context(), rideID, actor, req.Reason)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// Reoffer handles POST /v1/rides/:id/reoffer. It moves an expired offer on
// to the next candidate.
func (h *RideHandler) Reoffer(c *gin.Context) {
	driverID, err := h.coordinator.Reoffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"offered_driver": driverID})
}

// WaitingSessionResponse is the HTTP representation of a waiting session.
type WaitingSessionResponse struct {
	ID        string `json:"id"`
	RideID    string `json:"ride_id"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
}

// StartWaiting handles POST /v1/rides/:id/waiting/start
func (h *RideHandler) StartWaiting(c *gin.Context) {
	session, err := h.waitingService.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, WaitingSessionResponse{
		ID:        session.ID,
		RideID:    session.RideID,
		StartedAt: session.StartedAt.Format(time.RFC3339),
	})
}

// StopWaitingResponse is the HTTP response for closing a waiting session.
type StopWaitingResponse struct {
	Session      WaitingSessionResponse `json:"session"`
	ExtraMinutes int                    `json:"extra_minutes"`
	ExtraCharge  float64                `json:"extra_charge"`
	Fare         FareResponse           `json:"fare"`
}

// StopWaiting handles POST /v1/rides/:id/waiting/stop
func (h *RideHandler) StopWaiting(c *gin.Context) {
	result, err := h.waitingService.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, StopWaitingResponse{
		Session: WaitingSessionResponse{
			ID:        result.Session.ID,
			RideID:    result.Session.RideID,
			StartedAt: result.Session.StartedAt.Format(time.RFC3339),
			EndedAt:   result.Session.EndedAt.Format(time.RFC3339),
		},
		ExtraMinutes: result.Session.ExtraMinutes,
		ExtraCharge:  result.ExtraCharge,
		Fare: FareResponse{
			Base:     result.Fare.Base,
			Distance: result.Fare.Distance,
			Time:     result.Fare.Time,
			Waiting:  result.Fare.Waiting,
			Total:    result.Fare.Total,
		},
	})
}
