package service

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/broadcast"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// CancellationPolicy enforces time-boxed cancellation rights and the
// escalating penalty: repeated daily cancellations suspend the rider from
// creating new rides for a cooldown period.
type CancellationPolicy struct {
	rideRepo   repository.RideRepository
	riderRepo  repository.RiderRepository
	publisher  broadcast.Publisher
	window     time.Duration
	maxDaily   int
	suspension time.Duration
}

// NewCancellationPolicy creates a new CancellationPolicy.
func NewCancellationPolicy(
	rideRepo repository.RideRepository,
	riderRepo repository.RiderRepository,
	publisher broadcast.Publisher,
	window time.Duration,
	maxDaily int,
	suspension time.Duration,
) *CancellationPolicy {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if maxDaily <= 0 {
		maxDaily = 3
	}
	if suspension <= 0 {
		suspension = 24 * time.Hour
	}
	return &CancellationPolicy{
		rideRepo:   rideRepo,
		riderRepo:  riderRepo,
		publisher:  publisher,
		window:     window,
		maxDaily:   maxDaily,
		suspension: suspension,
	}
}

// CheckCanCreate is the ride-creation precondition: a rider whose
// blocked_until is still in the future may not create rides.
func (p *CancellationPolicy) CheckCanCreate(ctx context.Context, riderID string) error {
	if err := p.riderRepo.Ensure(ctx, riderID); err != nil {
		return err
	}

	rider, err := p.riderRepo.Get(ctx, riderID)
	if err != nil {
		return err
	}
	if rider.Suspended(time.Now()) {
		return ErrAccountSuspended
	}
	return nil
}

// riderCancellable lists the statuses a rider may still cancel from.
// DRIVER_ARRIVED and beyond are excluded.
var riderCancellable = []domain.RideStatus{
	domain.RideStatusRequested,
	domain.RideStatusAccepted,
}

// CancelByRider cancels the ride within the allowed window and applies the
// penalty counter. Cancelling exactly at the boundary succeeds; a moment
// past it fails with ErrCancelWindowExpired.
func (p *CancellationPolicy) CancelByRider(ctx context.Context, rideID, riderID, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	ride, err := p.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != riderID {
		return nil, ErrNotRideParticipant
	}

	cancellable := false
	for _, s := range riderCancellable {
		if ride.Status == s {
			cancellable = true
			break
		}
	}
	if !cancellable {
		return nil, ErrInvalidRideState
	}

	now := time.Now()
	if now.Sub(ride.CreatedAt) > p.window {
		return nil, ErrCancelWindowExpired
	}

	ok, err := p.rideRepo.CancelIf(ctx, rideID, riderCancellable, domain.RideStatusCancelledByClient, now, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The ride progressed between the read and the write.
		return nil, ErrInvalidRideState
	}

	if err := p.recordPenalty(ctx, riderID, now); err != nil {
		return nil, err
	}

	p.publishCancelled(ctx, rideID, domain.RideStatusCancelledByClient)

	return p.rideRepo.GetByID(ctx, rideID)
}

func (p *CancellationPolicy) recordPenalty(ctx context.Context, riderID string, now time.Time) error {
	if err := p.riderRepo.Ensure(ctx, riderID); err != nil {
		return err
	}
	_, err := p.riderRepo.RecordCancellation(ctx, riderID, now, p.maxDaily, now.Add(p.suspension))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// CancelByDriver cancels the ride on behalf of its assigned driver. No
// window or penalty applies; the state guard alone decides.
func (p *CancellationPolicy) CancelByDriver(ctx context.Context, rideID, driverID, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := p.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, ErrNotRideParticipant
	}
	if ride.Status.Terminal() {
		return nil, ErrInvalidRideState
	}

	allowed := []domain.RideStatus{
		domain.RideStatusAccepted,
		domain.RideStatusDriverArrived,
		domain.RideStatusOnRide,
	}
	ok, err := p.rideRepo.CancelIf(ctx, rideID, allowed, domain.RideStatusCancelledByDriver, time.Now(), reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidRideState
	}

	p.publishCancelled(ctx, rideID, domain.RideStatusCancelledByDriver)

	return p.rideRepo.GetByID(ctx, rideID)
}

// CancelAuto is the system-side cancellation used by sweepers and
// operators, reachable from any pre-COMPLETED state.
func (p *CancellationPolicy) CancelAuto(ctx context.Context, rideID, reason string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	allowed := []domain.RideStatus{
		domain.RideStatusRequested,
		domain.RideStatusAccepted,
		domain.RideStatusDriverArrived,
		domain.RideStatusOnRide,
	}
	ok, err := p.rideRepo.CancelIf(ctx, rideID, allowed, domain.RideStatusCancelledAuto, time.Now(), reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, getErr := p.rideRepo.GetByID(ctx, rideID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidRideState
	}

	p.publishCancelled(ctx, rideID, domain.RideStatusCancelledAuto)

	return p.rideRepo.GetByID(ctx, rideID)
}

func (p *CancellationPolicy) publishCancelled(ctx context.Context, rideID string, status domain.RideStatus) {
	p.publisher.Publish(ctx, domain.RideTopic(rideID), domain.Event{
		Type:       domain.EventStatusChanged,
		RideID:     rideID,
		Status:     status,
		OccurredAt: time.Now(),
	})
}
