package domain

import "time"

// WaitingSession is a timed interval of driver dwell time beyond the ride's
// free allowance. At most one open session per ride at any time.
type WaitingSession struct {
	ID           string
	RideID       string
	StartedAt    time.Time
	EndedAt      time.Time // zero while the session is open
	ExtraMinutes int
	ExtraCharge  float64
}

// Open reports whether the session has not yet been closed.
func (w *WaitingSession) Open() bool {
	return w.EndedAt.IsZero()
}
