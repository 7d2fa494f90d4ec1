package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoOpenWaitingSession):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRiderID),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidBookingType),
		errors.Is(err, service.ErrInvalidTripType),
		errors.Is(err, service.ErrInvalidPaymentMode),
		errors.Is(err, service.ErrInvalidPaymentInstrument),
		errors.Is(err, service.ErrInvalidWeek):
		return http.StatusBadRequest

	// Wrong verification code looks the same as no credentials at all.
	case errors.Is(err, service.ErrInvalidVerificationCode):
		return http.StatusUnauthorized

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrCancelWindowExpired),
		errors.Is(err, service.ErrAccountSuspended),
		errors.Is(err, service.ErrNotRideParticipant):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrInvalidRideState),
		errors.Is(err, service.ErrRideAlreadyTaken),
		errors.Is(err, service.ErrWaitingAlreadyOpen),
		errors.Is(err, service.ErrWaitingNotApplicable),
		errors.Is(err, service.ErrFareLocked),
		errors.Is(err, service.ErrNoPayoutInstrument):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, service.ErrExternalDependency):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
