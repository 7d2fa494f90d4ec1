package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/broadcast"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// WaitingService tracks driver dwell time on round trips and escalates the
// fare when the pre-agreed allowance is exceeded.
type WaitingService struct {
	waitingRepo repository.WaitingRepository
	rideRepo    repository.RideRepository
	calculator  *FareCalculator
	publisher   broadcast.Publisher
}

// NewWaitingService creates a new WaitingService.
func NewWaitingService(
	waitingRepo repository.WaitingRepository,
	rideRepo repository.RideRepository,
	calculator *FareCalculator,
	publisher broadcast.Publisher,
) *WaitingService {
	return &WaitingService{
		waitingRepo: waitingRepo,
		rideRepo:    rideRepo,
		calculator:  calculator,
		publisher:   publisher,
	}
}

// Start opens a waiting session for an in-progress round trip. A second
// open session for the same ride is refused.
func (s *WaitingService) Start(ctx context.Context, rideID string) (*domain.WaitingSession, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.TripType != domain.TripRoundTrip {
		return nil, ErrWaitingNotApplicable
	}
	if ride.Status != domain.RideStatusOnRide {
		return nil, ErrInvalidRideState
	}

	session := &domain.WaitingSession{
		ID:        uuid.New().String(),
		RideID:    rideID,
		StartedAt: time.Now(),
	}

	if err := s.waitingRepo.Open(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrWaitingAlreadyOpen
		}
		return nil, err
	}

	return session, nil
}

// StopResult describes a closed waiting session.
type StopResult struct {
	Session     *domain.WaitingSession
	ExtraCharge float64
	Fare        domain.FareBreakdown
}

// Stop closes the ride's open session. Dwell beyond the allowance is
// charged per started minute; the charge lands on the waiting and total
// fare components in one atomic increment, and the new breakdown is
// broadcast so the rider's live view updates immediately. Closing with no
// open session fails with ErrNoOpenWaitingSession and changes nothing.
func (s *WaitingService) Stop(ctx context.Context, rideID string) (*StopResult, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	session, err := s.waitingRepo.GetOpen(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoOpenWaitingSession
		}
		return nil, err
	}

	now := time.Now()
	elapsed := int(math.Ceil(now.Sub(session.StartedAt).Seconds() / 60))
	extraMinutes := elapsed - ride.WaitingAllowed
	if extraMinutes < 0 {
		extraMinutes = 0
	}
	extraCharge := s.calculator.WaitingCharge(extraMinutes)

	closed, err := s.waitingRepo.CloseOpen(ctx, rideID, now, extraMinutes, extraCharge)
	if err != nil {
		return nil, err
	}
	if !closed {
		// A concurrent stop won; this one makes no change.
		return nil, ErrNoOpenWaitingSession
	}

	session.EndedAt = now
	session.ExtraMinutes = extraMinutes
	session.ExtraCharge = extraCharge

	if extraCharge > 0 {
		ok, err := s.rideRepo.AddWaitingCharge(ctx, rideID, extraCharge)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrFareLocked
		}
	}

	updated, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if extraCharge > 0 {
		fare := updated.Fare
		s.publisher.Publish(ctx, domain.RideTopic(rideID), domain.Event{
			Type:       domain.EventFareUpdated,
			RideID:     rideID,
			Fare:       &fare,
			OccurredAt: now,
		})
	}

	return &StopResult{
		Session:     session,
		ExtraCharge: extraCharge,
		Fare:        updated.Fare,
	}, nil
}
