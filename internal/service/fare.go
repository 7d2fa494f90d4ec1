package service

import (
	"dispatch/internal/config"
	"dispatch/internal/domain"
)

// FareCalculator prices trips from their parameters. Pure: no state beyond
// the configured rates.
type FareCalculator struct {
	rates config.PricingConfig
}

// NewFareCalculator creates a new FareCalculator.
func NewFareCalculator(rates config.PricingConfig) *FareCalculator {
	return &FareCalculator{rates: rates}
}

// TripParams are the pricing inputs for a ride.
type TripParams struct {
	BookingType domain.BookingType
	TripType    domain.TripType
	DistanceKm  float64
	DurationMin float64
}

// Calculate produces the itemized fare for the trip. The waiting component
// starts at zero; escalation adds to it later. Round trips price the
// variable component both ways.
func (c *FareCalculator) Calculate(p TripParams) domain.FareBreakdown {
	multiplier := 1.0
	if p.TripType == domain.TripRoundTrip {
		multiplier = 2.0
	}

	fare := domain.FareBreakdown{Base: c.rates.BaseFare}

	switch p.BookingType {
	case domain.BookingTimeBased:
		fare.Time = p.DurationMin * c.rates.PerMinuteRate * multiplier
	default:
		fare.Distance = p.DistanceKm * c.rates.PerKmRate * multiplier
	}

	fare.Total = fare.Base + fare.Distance + fare.Time + fare.Waiting
	return fare
}

// WaitingCharge prices dwell time beyond the allowance.
func (c *FareCalculator) WaitingCharge(extraMinutes int) float64 {
	if extraMinutes <= 0 {
		return 0
	}
	return float64(extraMinutes) * c.rates.WaitingPerMinute
}

// PayableShare computes a driver's share of a gross fare sum.
func (c *FareCalculator) PayableShare(gross float64) float64 {
	return gross * c.rates.DriverSharePercent / 100
}
