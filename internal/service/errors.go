package service

import "errors"

var (
	// ErrInvalidRideState is returned when an illegal transition is attempted.
	ErrInvalidRideState = errors.New("ride not in a valid state for this operation")

	// ErrRideAlreadyTaken is returned to the loser of the accept race.
	ErrRideAlreadyTaken = errors.New("ride already accepted by another driver")

	// ErrNoDriverAvailable is returned when no candidate can be located.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrInvalidVerificationCode is returned when the supplied code does
	// not match the ride's code exactly.
	ErrInvalidVerificationCode = errors.New("invalid verification code")

	// ErrCancelWindowExpired is returned when a rider cancels past the
	// allowed window.
	ErrCancelWindowExpired = errors.New("cancellation window expired")

	// ErrAccountSuspended is returned when a blocked rider tries to
	// create a ride.
	ErrAccountSuspended = errors.New("account suspended from creating rides")

	// ErrNoOpenWaitingSession is returned when closing a wait that was
	// never opened.
	ErrNoOpenWaitingSession = errors.New("no open waiting session for ride")

	// ErrWaitingAlreadyOpen is returned when opening a second concurrent
	// waiting session for the same ride.
	ErrWaitingAlreadyOpen = errors.New("waiting session already open for ride")

	// ErrWaitingNotApplicable is returned for waiting operations on
	// one-way rides.
	ErrWaitingNotApplicable = errors.New("waiting applies to round trips only")

	// ErrNotRideParticipant is returned when the caller is neither the
	// rider nor the assigned driver of the ride.
	ErrNotRideParticipant = errors.New("caller is not a participant of this ride")

	// ErrFareLocked is returned when mutating an already finalized fare.
	ErrFareLocked = errors.New("final fare is locked")

	// ErrExternalDependency wraps disbursement processor failures that
	// were not recoverable via the fallback instrument.
	ErrExternalDependency = errors.New("external dependency failure")

	// ErrInvalidRiderID is returned when the rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRideID is returned when the ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidBookingType is returned for unknown booking types.
	ErrInvalidBookingType = errors.New("invalid booking type")

	// ErrInvalidTripType is returned for unknown trip types.
	ErrInvalidTripType = errors.New("invalid trip type")

	// ErrInvalidPaymentMode is returned for unknown payment modes.
	ErrInvalidPaymentMode = errors.New("invalid payment mode")

	// ErrInvalidPaymentInstrument is returned for unknown instruments.
	ErrInvalidPaymentInstrument = errors.New("invalid payment instrument")

	// ErrInvalidWeek is returned when a settlement week is malformed.
	ErrInvalidWeek = errors.New("invalid settlement week")

	// ErrNoPayoutInstrument is returned when a driver has neither a bank
	// account nor a fallback instrument on file.
	ErrNoPayoutInstrument = errors.New("driver has no payout instrument")
)
