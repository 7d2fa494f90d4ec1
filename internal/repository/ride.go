package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides. Every
// race-critical mutation is a single conditional statement: the methods
// returning a bool report whether the precondition held, with no mutation
// otherwise.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID. The verification code is not loaded.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetVerificationCode loads the write-protected code for a ride.
	GetVerificationCode(ctx context.Context, id string) (string, error)

	// Offer attaches a candidate driver and an acceptance expiry to a
	// REQUESTED ride. The status does not change.
	Offer(ctx context.Context, rideID, driverID string, assignedAt, expiresAt time.Time) (bool, error)

	// ClearOffer strips any pending offer from a REQUESTED ride.
	ClearOffer(ctx context.Context, rideID string) error

	// Accept binds a driver to a ride if and only if the ride is still
	// REQUESTED: sets ACCEPTED, the driver, a fresh verification code and
	// clears the expiry in one conditional write. Returns false when the
	// ride was no longer REQUESTED.
	Accept(ctx context.Context, rideID, driverID, code string, at time.Time) (bool, error)

	// Reject records the driver in the rejected set and strips any
	// pending offer, leaving the ride eligible for re-assignment.
	Reject(ctx context.Context, rideID, driverID string) error

	// TransitionIf moves the ride from exactly `from` to `to`, optionally
	// requiring the assigned driver to match.
	TransitionIf(ctx context.Context, rideID string, from, to domain.RideStatus, driverID string) (bool, error)

	// VerifyCode moves DRIVER_ARRIVED to ON_RIDE and sets otp_verified if
	// and only if the supplied code matches exactly.
	VerifyCode(ctx context.Context, rideID, code string) (bool, error)

	// Complete moves ON_RIDE to COMPLETED for the assigned driver, stamps
	// the completion time and locks the fare. markPaid also flips the
	// payment status for pay-now rides.
	Complete(ctx context.Context, rideID, driverID string, at time.Time, markPaid bool) (bool, error)

	// CancelIf cancels the ride when its status is one of `allowed`.
	CancelIf(ctx context.Context, rideID string, allowed []domain.RideStatus, to domain.RideStatus, at time.Time, reason string) (bool, error)

	// AddWaitingCharge atomically adds amount to both the waiting and
	// total fare components. Locked fares are never touched.
	AddWaitingCharge(ctx context.Context, rideID string, amount float64) (bool, error)

	// AggregateCompleted groups COMPLETED rides with completion times in
	// [start, end) by driver, summing gross fares.
	AggregateCompleted(ctx context.Context, start, end time.Time) ([]domain.WeeklyEarning, error)
}
