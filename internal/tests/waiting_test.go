package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func newWaitingService(waitingRepo *MockWaitingRepository, rideRepo *MockRideRepository, publisher *CapturePublisher) *service.WaitingService {
	return service.NewWaitingService(waitingRepo, rideRepo, service.NewFareCalculator(testPricing()), publisher)
}

func newRoundTripOnRide(id, riderID string, allowance int) *domain.Ride {
	ride := newRequestedRide(id, riderID)
	ride.Status = domain.RideStatusOnRide
	ride.DriverID = "driver-1"
	ride.TripType = domain.TripRoundTrip
	ride.WaitingAllowed = allowance
	return ride
}

func TestStartWaiting_OpensSession(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newRoundTripOnRide("ride-1", "rider-1", 10))
	svc := newWaitingService(NewMockWaitingRepository(), rideRepo, NewCapturePublisher())

	session, err := svc.Start(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if session.RideID != "ride-1" || !session.Open() {
		t.Errorf("expected an open session for ride-1, got %+v", session)
	}
}

func TestStartWaiting_OneWayTrip_Refused(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRoundTripOnRide("ride-1", "rider-1", 10)
	ride.TripType = domain.TripOneWay
	rideRepo.AddRide(ride)
	svc := newWaitingService(NewMockWaitingRepository(), rideRepo, NewCapturePublisher())

	_, err := svc.Start(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrWaitingNotApplicable) {
		t.Fatalf("expected ErrWaitingNotApplicable, got %v", err)
	}
}

func TestStartWaiting_BeforeTripStart_Refused(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRoundTripOnRide("ride-1", "rider-1", 10)
	ride.Status = domain.RideStatusDriverArrived
	rideRepo.AddRide(ride)
	svc := newWaitingService(NewMockWaitingRepository(), rideRepo, NewCapturePublisher())

	_, err := svc.Start(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrInvalidRideState) {
		t.Fatalf("expected ErrInvalidRideState, got %v", err)
	}
}

func TestStartWaiting_SecondOpenSession_Refused(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newRoundTripOnRide("ride-1", "rider-1", 10))
	svc := newWaitingService(NewMockWaitingRepository(), rideRepo, NewCapturePublisher())

	if _, err := svc.Start(context.Background(), "ride-1"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := svc.Start(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrWaitingAlreadyOpen) {
		t.Fatalf("expected ErrWaitingAlreadyOpen, got %v", err)
	}
}

func TestStopWaiting_BeyondAllowance_EscalatesFare(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRoundTripOnRide("ride-1", "rider-1", 10)
	rideRepo.AddRide(ride)
	waitingRepo := NewMockWaitingRepository()
	// 17m30s of dwell rounds up to 18 started minutes.
	waitingRepo.AddSession(&domain.WaitingSession{
		ID:        "session-1",
		RideID:    "ride-1",
		StartedAt: time.Now().Add(-17*time.Minute - 30*time.Second),
	})
	publisher := NewCapturePublisher()
	svc := newWaitingService(waitingRepo, rideRepo, publisher)

	originalTotal := ride.Fare.Total

	result, err := svc.Stop(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if result.Session.ExtraMinutes != 8 {
		t.Errorf("expected 8 extra minutes, got %d", result.Session.ExtraMinutes)
	}
	if result.ExtraCharge != 16 {
		t.Errorf("expected extra charge 16, got %v", result.ExtraCharge)
	}
	if result.Fare.Waiting != 16 {
		t.Errorf("expected waiting component 16, got %v", result.Fare.Waiting)
	}
	if result.Fare.Total != originalTotal+16 {
		t.Errorf("expected total %v, got %v", originalTotal+16, result.Fare.Total)
	}

	last := publisher.Last()
	if last == nil || last.Event.Type != domain.EventFareUpdated {
		t.Fatal("expected a FARE_UPDATED event published")
	}
	if last.Event.Fare == nil || last.Event.Fare.Total != originalTotal+16 {
		t.Error("expected the event to carry the escalated breakdown")
	}
}

func TestStopWaiting_WithinAllowance_NoCharge(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newRoundTripOnRide("ride-1", "rider-1", 10))
	waitingRepo := NewMockWaitingRepository()
	waitingRepo.AddSession(&domain.WaitingSession{
		ID:        "session-1",
		RideID:    "ride-1",
		StartedAt: time.Now().Add(-5 * time.Minute),
	})
	publisher := NewCapturePublisher()
	svc := newWaitingService(waitingRepo, rideRepo, publisher)

	result, err := svc.Stop(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if result.ExtraCharge != 0 {
		t.Errorf("expected no extra charge, got %v", result.ExtraCharge)
	}
	if result.Fare.Waiting != 0 {
		t.Errorf("expected waiting component untouched, got %v", result.Fare.Waiting)
	}
	if publisher.CountType(domain.EventFareUpdated) != 0 {
		t.Error("expected no fare event when nothing changed")
	}
}

func TestStopWaiting_NoOpenSession_Fails(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	rideRepo.AddRide(newRoundTripOnRide("ride-1", "rider-1", 10))
	svc := newWaitingService(NewMockWaitingRepository(), rideRepo, NewCapturePublisher())

	_, err := svc.Stop(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrNoOpenWaitingSession) {
		t.Fatalf("expected ErrNoOpenWaitingSession, got %v", err)
	}
}

func TestStopWaiting_LockedFare_Refused(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	ride := newRoundTripOnRide("ride-1", "rider-1", 0)
	ride.FinalFareLocked = true
	rideRepo.AddRide(ride)
	waitingRepo := NewMockWaitingRepository()
	waitingRepo.AddSession(&domain.WaitingSession{
		ID:        "session-1",
		RideID:    "ride-1",
		StartedAt: time.Now().Add(-90 * time.Second),
	})
	svc := newWaitingService(waitingRepo, rideRepo, NewCapturePublisher())

	_, err := svc.Stop(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrFareLocked) {
		t.Fatalf("expected ErrFareLocked, got %v", err)
	}
}
