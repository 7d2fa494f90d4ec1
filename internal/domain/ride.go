package domain

import "time"

// RideStatus represents the current lifecycle status of a ride.
type RideStatus string

const (
	RideStatusRequested         RideStatus = "REQUESTED"
	RideStatusAccepted          RideStatus = "ACCEPTED"
	RideStatusDriverArrived     RideStatus = "DRIVER_ARRIVED"
	RideStatusOnRide            RideStatus = "ON_RIDE"
	RideStatusCompleted         RideStatus = "COMPLETED"
	RideStatusCancelledByClient RideStatus = "CANCELLED_BY_CLIENT"
	RideStatusCancelledByDriver RideStatus = "CANCELLED_BY_DRIVER"
	RideStatusCancelledAuto     RideStatus = "CANCELLED_AUTO"
)

// Terminal reports whether the status is an end state.
func (s RideStatus) Terminal() bool {
	switch s {
	case RideStatusCompleted, RideStatusCancelledByClient,
		RideStatusCancelledByDriver, RideStatusCancelledAuto:
		return true
	}
	return false
}

// BookingType determines how the variable fare component is priced.
type BookingType string

const (
	BookingDistanceBased BookingType = "DISTANCE_BASED"
	BookingTimeBased     BookingType = "TIME_BASED"
)

// TripType distinguishes one-way trips from round trips with waiting.
type TripType string

const (
	TripOneWay    TripType = "ONE_WAY"
	TripRoundTrip TripType = "ROUND_TRIP"
)

// PaymentMode determines when the rider pays.
type PaymentMode string

const (
	PaymentModePayNow   PaymentMode = "PAY_NOW"
	PaymentModePayAfter PaymentMode = "PAY_AFTER_TRIP"
)

// PaymentStatus represents whether a ride has been paid for.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// PaymentInstrument represents the rider's payment instrument.
type PaymentInstrument string

const (
	PaymentInstrumentCash   PaymentInstrument = "CASH"
	PaymentInstrumentCard   PaymentInstrument = "CARD"
	PaymentInstrumentWallet PaymentInstrument = "WALLET"
)

// FareBreakdown is the itemized fare for a ride. Total always equals the
// sum of the other four components at rest.
type FareBreakdown struct {
	Base     float64
	Distance float64
	Time     float64
	Waiting  float64
	Total    float64
}

// Consistent reports whether the breakdown satisfies the sum invariant.
func (f FareBreakdown) Consistent() bool {
	if f.Base < 0 || f.Distance < 0 || f.Time < 0 || f.Waiting < 0 {
		return false
	}
	return f.Total == f.Base+f.Distance+f.Time+f.Waiting
}

// Ride represents one transportation request from creation to a terminal
// state. Rides are never physically deleted; they are retained for audit
// and settlement.
type Ride struct {
	ID      string
	RiderID string

	// DriverID is non-empty only once a driver has accepted. During the
	// offer phase the candidate lives in OfferedDriverID.
	DriverID        string
	OfferedDriverID string

	PickupLat      float64
	PickupLng      float64
	DropLat        float64
	DropLng        float64
	DistanceKm     float64
	DurationMin    float64
	BookingType    BookingType
	TripType       TripType
	WaitingAllowed int // free waiting minutes for round trips

	Fare FareBreakdown

	Status           RideStatus
	AssignedAt       time.Time
	RequestExpiresAt time.Time
	// OTPCode is write-protected: default read paths leave it empty.
	OTPCode         string
	OTPVerified     bool
	CompletedAt     time.Time
	FinalFareLocked bool

	PaymentMode       PaymentMode
	PaymentStatus     PaymentStatus
	PaymentInstrument PaymentInstrument

	// RejectedDriverIDs is the set of drivers who declined this ride.
	RejectedDriverIDs []string

	CreatedAt    time.Time
	CancelledAt  time.Time
	CancelReason string
}

// RejectedBy reports whether the given driver already declined this ride.
func (r *Ride) RejectedBy(driverID string) bool {
	for _, id := range r.RejectedDriverIDs {
		if id == driverID {
			return true
		}
	}
	return false
}

// OfferExpired reports whether a pending offer has passed its expiry.
// Advisory only: the conditional accept remains the authoritative guard.
func (r *Ride) OfferExpired(now time.Time) bool {
	return !r.RequestExpiresAt.IsZero() && now.After(r.RequestExpiresAt)
}
