package domain

import "time"

// PayoutStatus represents the settlement state of a weekly payout.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusPaid       PayoutStatus = "PAID"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// PayoutRecord is one driver's weekly earnings settlement unit. Exactly one
// record exists per (driver, week-start) pair; weeks run Monday to Sunday.
type PayoutRecord struct {
	ID             string
	DriverID       string
	WeekStart      time.Time
	WeekEnd        time.Time
	RideCount      int
	GrossFare      float64
	PayableAmount  float64
	DisbursementID string
	Status         PayoutStatus
	FailureReason  string
	Note           string
	PaidAt         time.Time
	CreatedAt      time.Time
}

// WeeklyEarning is one row of the read-only settlement aggregation.
type WeeklyEarning struct {
	DriverID      string
	RideCount     int
	GrossFare     float64
	PayableAmount float64
}

// WeekStart truncates t to the start of its calendar week (Monday 00:00 UTC).
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}
