package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// DriverHandler handles HTTP requests made by drivers: offer responses,
// trip progression and presence updates.
type DriverHandler struct {
	rideService  *service.RideService
	coordinator  *service.AssignmentCoordinator
	driverRepo   repository.DriverRepository
	availability redis.AvailabilityStoreInterface
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(
	rideService *service.RideService,
	coordinator *service.AssignmentCoordinator,
	driverRepo repository.DriverRepository,
	availability redis.AvailabilityStoreInterface,
) *DriverHandler {
	return &DriverHandler{
		rideService:  rideService,
		coordinator:  coordinator,
		driverRepo:   driverRepo,
		availability: availability,
	}
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	ride, err := h.coordinator.Accept(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// RejectRide handles POST /v1/rides/:id/reject
func (h *DriverHandler) RejectRide(c *gin.Context) {
	if err := h.coordinator.Reject(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"rejected": true})
}

// MarkArrived handles POST /v1/rides/:id/arrived
func (h *DriverHandler) MarkArrived(c *gin.Context) {
	ride, err := h.rideService.MarkArrived(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// VerifyCodeRequest is the HTTP request body for starting a trip.
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// VerifyCode handles POST /v1/rides/:id/verify
func (h *DriverHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.VerifyCode(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *DriverHandler) CompleteRide(c *gin.Context) {
	ride, err := h.rideService.Complete(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// StatusRequest is the HTTP request body for toggling driver availability.
type StatusRequest struct {
	Online bool `json:"online"`
}

// SetStatus handles POST /v1/drivers/status. Presence is written to both
// the durable record and the geo index so dispatch sees it immediately.
func (h *DriverHandler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driverID := c.GetString("userID")
	now := time.Now()

	if err := h.driverRepo.SetOnline(c.Request.Context(), driverID, req.Online, now); err != nil {
		respondError(c, err)
		return
	}

	if req.Online {
		if err := h.availability.SetOnline(c.Request.Context(), driverID); err != nil {
			respondError(c, err)
			return
		}
	} else {
		if err := h.availability.SetOffline(c.Request.Context(), driverID); err != nil {
			respondError(c, err)
			return
		}
	}

	respondJSON(c, http.StatusOK, gin.H{"driver_id": driverID, "online": req.Online})
}

// LocationRequest is the HTTP request body for a position heartbeat.
type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/drivers/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid coordinates"})
		return
	}

	driverID := c.GetString("userID")
	now := time.Now()

	if err := h.driverRepo.Heartbeat(c.Request.Context(), driverID, req.Lat, req.Lng, now); err != nil {
		respondError(c, err)
		return
	}
	if err := h.availability.Heartbeat(c.Request.Context(), driverID, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"driver_id": driverID, "lat": req.Lat, "lng": req.Lng})
}
