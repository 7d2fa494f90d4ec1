package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// WaitingRepository defines persistence for waiting sessions. The storage
// layer enforces at most one open session per ride.
type WaitingRepository interface {
	// Open creates a new open session. Returns ErrDuplicate when the ride
	// already has one.
	Open(ctx context.Context, session *domain.WaitingSession) error

	// GetOpen retrieves the ride's open session, or ErrNotFound.
	GetOpen(ctx context.Context, rideID string) (*domain.WaitingSession, error)

	// CloseOpen closes the ride's open session in a single conditional
	// write. Returns false when no session was open, so a concurrent
	// second close fails cleanly instead of double-charging.
	CloseOpen(ctx context.Context, rideID string, endedAt time.Time, extraMinutes int, extraCharge float64) (bool, error)
}
