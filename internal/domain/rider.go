package domain

import "time"

// Rider carries the cancellation-policy state for a rider account. The
// counter rolls over daily; reaching the threshold suspends ride creation
// until BlockedUntil.
type Rider struct {
	ID              string
	CancelCount     int
	CancelCountDate time.Time
	BlockedUntil    time.Time
}

// Suspended reports whether the rider is currently blocked from creating
// rides.
func (r *Rider) Suspended(now time.Time) bool {
	return now.Before(r.BlockedUntil)
}

// CancelsToday returns the rolling daily counter, treating a stale counter
// date as zero.
func (r *Rider) CancelsToday(now time.Time) int {
	y1, m1, d1 := r.CancelCountDate.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return 0
	}
	return r.CancelCount
}
