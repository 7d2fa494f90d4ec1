package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// RiderRepository defines persistence for rider cancellation-policy state.
type RiderRepository interface {
	// Ensure creates the rider row if it does not exist.
	Ensure(ctx context.Context, riderID string) error

	// Get retrieves a rider's policy record.
	Get(ctx context.Context, riderID string) (*domain.Rider, error)

	// RecordCancellation increments the rolling daily counter in a single
	// statement, resetting it when the stored date is not `day`, and sets
	// blocked_until to `blockUntil` once the new count reaches
	// `threshold`. Returns the new count.
	RecordCancellation(ctx context.Context, riderID string, day time.Time, threshold int, blockUntil time.Time) (int, error)
}
