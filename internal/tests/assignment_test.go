package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newRequestedRide(id, riderID string) *domain.Ride {
	return &domain.Ride{
		ID:                id,
		RiderID:           riderID,
		PickupLat:         12.9716,
		PickupLng:         77.5946,
		DropLat:           12.2958,
		DropLng:           76.6394,
		DistanceKm:        10,
		BookingType:       domain.BookingDistanceBased,
		TripType:          domain.TripOneWay,
		Fare:              domain.FareBreakdown{Base: 100, Distance: 150, Total: 250},
		Status:            domain.RideStatusRequested,
		PaymentMode:       domain.PaymentModePayAfter,
		PaymentStatus:     domain.PaymentStatusUnpaid,
		PaymentInstrument: domain.PaymentInstrumentCash,
		CreatedAt:         time.Now(),
	}
}

func TestAccept_ConcurrentDrivers_ExactlyOneWins(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newRequestedRide("ride-1", "rider-1"))

	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator(), NewCapturePublisher(), time.Minute)

	const contenders = 20
	var wg sync.WaitGroup
	var winners, losers int32
	var winnersMu sync.Mutex
	var winnerIDs []string

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			driverID := fmt.Sprintf("driver-%d", n)
			ride, err := coordinator.Accept(context.Background(), "ride-1", driverID)
			winnersMu.Lock()
			defer winnersMu.Unlock()
			switch {
			case err == nil:
				winners++
				winnerIDs = append(winnerIDs, ride.DriverID)
			case errors.Is(err, service.ErrRideAlreadyTaken):
				losers++
			default:
				t.Errorf("driver %s: unexpected error %v", driverID, err)
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if losers != contenders-1 {
		t.Fatalf("expected %d losers, got %d", contenders-1, losers)
	}

	ride := rideRepo.GetRide("ride-1")
	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", ride.Status)
	}
	if ride.DriverID != winnerIDs[0] {
		t.Errorf("bound driver %s does not match winner %s", ride.DriverID, winnerIDs[0])
	}
}

func TestAccept_CancelledRide_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRequestedRide("ride-1", "rider-1")
	ride.Status = domain.RideStatusCancelledByClient
	rideRepo.AddRide(ride)

	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator(), NewCapturePublisher(), time.Minute)

	_, err := coordinator.Accept(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState, got %v", err)
	}
	if got := rideRepo.GetRide("ride-1").Status; got != domain.RideStatusCancelledByClient {
		t.Errorf("status mutated to %s", got)
	}
}

func TestAccept_PublishesStatusEvent(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newRequestedRide("ride-1", "rider-1"))
	publisher := NewCapturePublisher()

	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator(), publisher, time.Minute)

	if _, err := coordinator.Accept(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	last := publisher.Last()
	if last == nil {
		t.Fatal("expected a published event")
	}
	if last.Topic != domain.RideTopic("ride-1") {
		t.Errorf("expected topic %s, got %s", domain.RideTopic("ride-1"), last.Topic)
	}
	if last.Event.Status != domain.RideStatusAccepted {
		t.Errorf("expected ACCEPTED event, got %s", last.Event.Status)
	}
}

func TestReject_KeepsRideRequestedAndRecordsDriver(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRequestedRide("ride-1", "rider-1")
	ride.OfferedDriverID = "driver-1"
	rideRepo.AddRide(ride)
	locator := NewMockLocator()

	coordinator := service.NewAssignmentCoordinator(rideRepo, locator, NewCapturePublisher(), time.Minute)

	if err := coordinator.Reject(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	got := rideRepo.GetRide("ride-1")
	if got.Status != domain.RideStatusRequested {
		t.Errorf("expected ride to stay REQUESTED, got %s", got.Status)
	}
	if !got.RejectedBy("driver-1") {
		t.Error("expected driver-1 in the rejected set")
	}
	if got.OfferedDriverID != "" {
		t.Errorf("expected offer stripped, still %s", got.OfferedDriverID)
	}
	if len(locator.Released) != 1 || locator.Released[0] != "driver-1" {
		t.Errorf("expected driver-1 released, got %v", locator.Released)
	}
}

func TestReject_AcceptedRide_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRequestedRide("ride-1", "rider-1")
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = "driver-1"
	rideRepo.AddRide(ride)

	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator(), NewCapturePublisher(), time.Minute)

	err := coordinator.Reject(context.Background(), "ride-1", "driver-2")
	if !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState, got %v", err)
	}
}

func TestReoffer_ExpiredOffer_MovesToNextCandidate(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRequestedRide("ride-1", "rider-1")
	ride.OfferedDriverID = "driver-stale"
	ride.RequestExpiresAt = time.Now().Add(-time.Minute)
	rideRepo.AddRide(ride)
	locator := NewMockLocator("driver-stale", "driver-next")

	coordinator := service.NewAssignmentCoordinator(rideRepo, locator, NewCapturePublisher(), time.Minute)

	driverID, err := coordinator.Reoffer(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("reoffer failed: %v", err)
	}
	if driverID != "driver-next" {
		t.Fatalf("expected driver-next offered, got %s", driverID)
	}

	got := rideRepo.GetRide("ride-1")
	if got.OfferedDriverID != "driver-next" {
		t.Errorf("expected offer on driver-next, got %s", got.OfferedDriverID)
	}
	if got.Status != domain.RideStatusRequested {
		t.Errorf("expected REQUESTED, got %s", got.Status)
	}
	if len(locator.Released) != 1 || locator.Released[0] != "driver-stale" {
		t.Errorf("expected stale candidate released, got %v", locator.Released)
	}
}

func TestReoffer_LiveOffer_IsLeftAlone(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRequestedRide("ride-1", "rider-1")
	ride.OfferedDriverID = "driver-1"
	ride.RequestExpiresAt = time.Now().Add(time.Minute)
	rideRepo.AddRide(ride)

	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator("driver-2"), NewCapturePublisher(), time.Minute)

	_, err := coordinator.Reoffer(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState, got %v", err)
	}
	if got := rideRepo.GetRide("ride-1").OfferedDriverID; got != "driver-1" {
		t.Errorf("expected offer untouched, got %s", got)
	}
}

func TestOffer_NoCandidate_ReturnsNoDriverAvailable(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRequestedRide("ride-1", "rider-1")
	rideRepo.AddRide(ride)

	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator(), NewCapturePublisher(), time.Minute)

	_, err := coordinator.Offer(context.Background(), ride)
	if !errors.Is(err, service.ErrNoDriverAvailable) {
		t.Fatalf("expected ErrNoDriverAvailable, got %v", err)
	}
}
