package service

import (
	"context"
	"time"

	"dispatch/internal/broadcast"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// LocatorInterface defines the driver-location contract, allowing mock
// implementations in tests.
type LocatorInterface interface {
	Locate(ctx context.Context, lat, lng float64, exclude []string) (string, error)
	Release(ctx context.Context, driverID string)
}

// Ensure DriverLocator implements LocatorInterface.
var _ LocatorInterface = (*DriverLocator)(nil)

// AssignmentCoordinator binds located drivers to rides. The accept path is
// the race-critical core: the storage layer's conditional write is the only
// authority on who wins, and no two drivers can ever be bound to one ride.
type AssignmentCoordinator struct {
	rideRepo     repository.RideRepository
	locator      LocatorInterface
	publisher    broadcast.Publisher
	acceptWindow time.Duration
}

// NewAssignmentCoordinator creates a new AssignmentCoordinator.
func NewAssignmentCoordinator(
	rideRepo repository.RideRepository,
	locator LocatorInterface,
	publisher broadcast.Publisher,
	acceptWindow time.Duration,
) *AssignmentCoordinator {
	if acceptWindow <= 0 {
		acceptWindow = 60 * time.Second
	}
	return &AssignmentCoordinator{
		rideRepo:     rideRepo,
		locator:      locator,
		publisher:    publisher,
		acceptWindow: acceptWindow,
	}
}

// Offer locates a candidate for a REQUESTED ride and attaches the offer
// with its acceptance expiry. Returns the offered driver id, or
// ErrNoDriverAvailable when the ride stays unassigned.
func (c *AssignmentCoordinator) Offer(ctx context.Context, ride *domain.Ride) (string, error) {
	driverID, err := c.locator.Locate(ctx, ride.PickupLat, ride.PickupLng, ride.RejectedDriverIDs)
	if err != nil {
		return "", err
	}

	now := time.Now()
	ok, err := c.rideRepo.Offer(ctx, ride.ID, driverID, now, now.Add(c.acceptWindow))
	if err != nil {
		c.locator.Release(ctx, driverID)
		return "", err
	}
	if !ok {
		// Ride left REQUESTED between locate and offer.
		c.locator.Release(ctx, driverID)
		return "", ErrInvalidRideState
	}

	return driverID, nil
}

// Accept is the driver's claim on a ride. The conditional write succeeds
// only while the ride is still REQUESTED; exactly one concurrent caller
// wins, and every loser gets ErrRideAlreadyTaken with nothing mutated.
func (c *AssignmentCoordinator) Accept(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	code := generateVerificationCode()
	claimed, err := c.rideRepo.Accept(ctx, rideID, driverID, code, time.Now())
	if err != nil {
		return nil, err
	}

	if !claimed {
		ride, err := c.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if ride.Status == domain.RideStatusAccepted || ride.Status == domain.RideStatusDriverArrived ||
			ride.Status == domain.RideStatusOnRide || ride.Status == domain.RideStatusCompleted {
			return nil, ErrRideAlreadyTaken
		}
		return nil, ErrInvalidRideState
	}

	ride, err := c.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	c.publisher.Publish(ctx, domain.RideTopic(rideID), domain.Event{
		Type:       domain.EventStatusChanged,
		RideID:     rideID,
		Status:     ride.Status,
		OccurredAt: time.Now(),
	})

	return ride, nil
}

// Reject removes the driver from consideration for the ride: the driver
// joins the rejected set, any pending offer is stripped, and the ride
// stays REQUESTED and eligible for re-assignment.
func (c *AssignmentCoordinator) Reject(ctx context.Context, rideID, driverID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if driverID == "" {
		return ErrInvalidDriverID
	}

	ride, err := c.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != domain.RideStatusRequested {
		return ErrInvalidRideState
	}

	if err := c.rideRepo.Reject(ctx, rideID, driverID); err != nil {
		return err
	}

	c.locator.Release(ctx, driverID)
	return nil
}

// Reoffer re-matches a REQUESTED ride whose offer expired (or that never
// had one). Expiry is advisory: a live offer is left alone, and an expired
// one is simply stripped before asking the locator again.
func (c *AssignmentCoordinator) Reoffer(ctx context.Context, rideID string) (string, error) {
	if rideID == "" {
		return "", ErrInvalidRideID
	}

	ride, err := c.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return "", err
	}
	if ride.Status != domain.RideStatusRequested {
		return "", ErrInvalidRideState
	}

	if ride.OfferedDriverID != "" {
		if !ride.OfferExpired(time.Now()) {
			return "", ErrInvalidRideState
		}
		if err := c.rideRepo.ClearOffer(ctx, rideID); err != nil {
			return "", err
		}
		c.locator.Release(ctx, ride.OfferedDriverID)
		// The stale candidate is skipped for this pass only; they are not
		// added to the rejected set.
		ride.RejectedDriverIDs = append(ride.RejectedDriverIDs, ride.OfferedDriverID)
	}

	return c.Offer(ctx, ride)
}
