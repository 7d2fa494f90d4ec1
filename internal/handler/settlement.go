package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// SettlementHandler handles admin settlement requests.
type SettlementHandler struct {
	settlement *service.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlement *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: settlement}
}

// parseWeekStart accepts a date in YYYY-MM-DD form and normalizes it to
// the enclosing week's Monday.
func parseWeekStart(raw string) (time.Time, error) {
	if raw == "" {
		return domain.WeekStart(time.Now()), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, service.ErrInvalidWeek
	}
	return domain.WeekStart(t), nil
}

// WeeklyEarningResponse is one driver's aggregate for the week.
type WeeklyEarningResponse struct {
	DriverID      string  `json:"driver_id"`
	RideCount     int     `json:"ride_count"`
	GrossFare     float64 `json:"gross_fare"`
	PayableAmount float64 `json:"payable_amount"`
}

// GetWeekly handles GET /v1/settlement/weekly?week_start=YYYY-MM-DD
func (h *SettlementHandler) GetWeekly(c *gin.Context) {
	weekStart, err := parseWeekStart(c.Query("week_start"))
	if err != nil {
		respondError(c, err)
		return
	}

	earnings, err := h.settlement.AggregateWeek(c.Request.Context(), weekStart)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]WeeklyEarningResponse, 0, len(earnings))
	for _, e := range earnings {
		response = append(response, WeeklyEarningResponse{
			DriverID:      e.DriverID,
			RideCount:     e.RideCount,
			GrossFare:     e.GrossFare,
			PayableAmount: e.PayableAmount,
		})
	}

	respondJSON(c, http.StatusOK, gin.H{
		"week_start": weekStart.Format("2006-01-02"),
		"earnings":   response,
	})
}

// DisburseRequest is the HTTP request body for triggering a payout batch.
type DisburseRequest struct {
	WeekStart string `json:"week_start"`
	Note      string `json:"note,omitempty"`
}

// Disburse handles POST /v1/settlement/disburse
func (h *SettlementHandler) Disburse(c *gin.Context) {
	var req DisburseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	weekStart, err := parseWeekStart(req.WeekStart)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.settlement.RunDisbursement(c.Request.Context(), weekStart, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"week_start": summary.WeekStart.Format("2006-01-02"),
		"submitted":  summary.Submitted,
		"failed":     summary.Failed,
		"skipped":    summary.Skipped,
	})
}

// PayoutRecordResponse is the HTTP representation of a payout record.
type PayoutRecordResponse struct {
	ID             string  `json:"id"`
	DriverID       string  `json:"driver_id"`
	WeekStart      string  `json:"week_start"`
	RideCount      int     `json:"ride_count"`
	GrossFare      float64 `json:"gross_fare"`
	PayableAmount  float64 `json:"payable_amount"`
	Status         string  `json:"status"`
	DisbursementID string  `json:"disbursement_id,omitempty"`
	FailureReason  string  `json:"failure_reason,omitempty"`
	PaidAt         string  `json:"paid_at,omitempty"`
}

// ListPayouts handles GET /v1/settlement/payouts?week_start=YYYY-MM-DD
func (h *SettlementHandler) ListPayouts(c *gin.Context) {
	weekStart, err := parseWeekStart(c.Query("week_start"))
	if err != nil {
		respondError(c, err)
		return
	}

	records, err := h.settlement.ListWeek(c.Request.Context(), weekStart)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PayoutRecordResponse, 0, len(records))
	for _, r := range records {
		item := PayoutRecordResponse{
			ID:             r.ID,
			DriverID:       r.DriverID,
			WeekStart:      r.WeekStart.Format("2006-01-02"),
			RideCount:      r.RideCount,
			GrossFare:      r.GrossFare,
			PayableAmount:  r.PayableAmount,
			Status:         string(r.Status),
			DisbursementID: r.DisbursementID,
			FailureReason:  r.FailureReason,
		}
		if !r.PaidAt.IsZero() {
			item.PaidAt = r.PaidAt.Format(time.RFC3339)
		}
		response = append(response, item)
	}

	respondJSON(c, http.StatusOK, response)
}
