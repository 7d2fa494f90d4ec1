package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// DriverRepository defines persistence for driver presence and payout
// instruments.
type DriverRepository interface {
	// SetOnline toggles the driver's online flag, creating the
	// availability record on first use.
	SetOnline(ctx context.Context, driverID string, online bool, at time.Time) error

	// Heartbeat updates the driver's last-known position and heartbeat.
	Heartbeat(ctx context.Context, driverID string, lat, lng float64, at time.Time) error

	// GetPayoutInstrument retrieves a driver's disbursement destinations.
	GetPayoutInstrument(ctx context.Context, driverID string) (*domain.PayoutInstrument, error)

	// SavePayeeRefs stores the external payee and fund account references
	// so subsequent settlement runs reuse them.
	SavePayeeRefs(ctx context.Context, driverID, payeeID, fundAccountID, fundAccountKind string) error
}
