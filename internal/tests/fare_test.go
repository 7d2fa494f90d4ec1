package tests

import (
	"testing"

	"dispatch/internal/config"
	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// testPricing is the rate card used across the suite.
func testPricing() config.PricingConfig {
	return config.PricingConfig{
		BaseFare:           100,
		PerKmRate:          15,
		PerMinuteRate:      3,
		WaitingPerMinute:   2,
		DriverSharePercent: 50,
	}
}

func TestFare_DistanceBased_OneWay(t *testing.T) {
	t.Parallel()

	calc := service.NewFareCalculator(testPricing())
	fare := calc.Calculate(service.TripParams{
		BookingType: domain.BookingDistanceBased,
		TripType:    domain.TripOneWay,
		DistanceKm:  10,
	})

	if fare.Base != 100 {
		t.Errorf("expected base 100, got %v", fare.Base)
	}
	if fare.Distance != 150 {
		t.Errorf("expected distance component 150, got %v", fare.Distance)
	}
	if fare.Total != 250 {
		t.Errorf("expected total 250, got %v", fare.Total)
	}
	if !fare.Consistent() {
		t.Error("expected breakdown to satisfy the sum invariant")
	}
}

func TestFare_TimeBased_UsesDuration(t *testing.T) {
	t.Parallel()

	calc := service.NewFareCalculator(testPricing())
	fare := calc.Calculate(service.TripParams{
		BookingType: domain.BookingTimeBased,
		TripType:    domain.TripOneWay,
		DistanceKm:  10, // ignored for time-based pricing
		DurationMin: 30,
	})

	if fare.Distance != 0 {
		t.Errorf("expected no distance component, got %v", fare.Distance)
	}
	if fare.Time != 90 {
		t.Errorf("expected time component 90, got %v", fare.Time)
	}
	if fare.Total != 190 {
		t.Errorf("expected total 190, got %v", fare.Total)
	}
}

func TestFare_RoundTrip_DoublesVariableComponentOnly(t *testing.T) {
	t.Parallel()

	calc := service.NewFareCalculator(testPricing())
	fare := calc.Calculate(service.TripParams{
		BookingType: domain.BookingDistanceBased,
		TripType:    domain.TripRoundTrip,
		DistanceKm:  10,
	})

	if fare.Base != 100 {
		t.Errorf("expected base unchanged at 100, got %v", fare.Base)
	}
	if fare.Distance != 300 {
		t.Errorf("expected doubled distance component 300, got %v", fare.Distance)
	}
	if fare.Total != 400 {
		t.Errorf("expected total 400, got %v", fare.Total)
	}
}

func TestFare_WaitingCharge(t *testing.T) {
	t.Parallel()

	calc := service.NewFareCalculator(testPricing())

	if got := calc.WaitingCharge(8); got != 16 {
		t.Errorf("expected 16 for 8 extra minutes, got %v", got)
	}
	if got := calc.WaitingCharge(0); got != 0 {
		t.Errorf("expected 0 for no extra minutes, got %v", got)
	}
	if got := calc.WaitingCharge(-3); got != 0 {
		t.Errorf("expected 0 for negative extra minutes, got %v", got)
	}
}

func TestFare_PayableShare(t *testing.T) {
	t.Parallel()

	calc := service.NewFareCalculator(testPricing())
	if got := calc.PayableShare(1000); got != 500 {
		t.Errorf("expected 500 payable from 1000 gross, got %v", got)
	}
}
