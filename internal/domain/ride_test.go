package domain

import "testing"

func TestFareBreakdownConsistent(t *testing.T) {
	ok := FareBreakdown{Base: 100, Distance: 150, Time: 0, Waiting: 16, Total: 266}
	if !ok.Consistent() {
		t.Error("expected a summing breakdown to be consistent")
	}

	drift := FareBreakdown{Base: 100, Distance: 150, Total: 200}
	if drift.Consistent() {
		t.Error("expected a non-summing breakdown flagged")
	}

	negative := FareBreakdown{Base: -1, Total: -1}
	if negative.Consistent() {
		t.Error("expected negative components flagged")
	}
}

func TestRideStatusTerminal(t *testing.T) {
	terminal := []RideStatus{
		RideStatusCompleted,
		RideStatusCancelledByClient,
		RideStatusCancelledByDriver,
		RideStatusCancelledAuto,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s: expected terminal", s)
		}
	}

	active := []RideStatus{
		RideStatusRequested,
		RideStatusAccepted,
		RideStatusDriverArrived,
		RideStatusOnRide,
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s: expected active", s)
		}
	}
}
