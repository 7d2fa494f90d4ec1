package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/broadcast"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// CoordinatorInterface defines the assignment contract used by the ride
// service, allowing mock implementations in tests.
type CoordinatorInterface interface {
	Offer(ctx context.Context, ride *domain.Ride) (string, error)
}

// Ensure AssignmentCoordinator implements CoordinatorInterface.
var _ CoordinatorInterface = (*AssignmentCoordinator)(nil)

// RideService owns the ride lifecycle: creation and the guarded
// transitions through arrival, verification and completion.
type RideService struct {
	rideRepo    repository.RideRepository
	coordinator CoordinatorInterface
	policy      *CancellationPolicy
	calculator  *FareCalculator
	publisher   broadcast.Publisher
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	coordinator CoordinatorInterface,
	policy *CancellationPolicy,
	calculator *FareCalculator,
	publisher broadcast.Publisher,
) *RideService {
	return &RideService{
		rideRepo:    rideRepo,
		coordinator: coordinator,
		policy:      policy,
		calculator:  calculator,
		publisher:   publisher,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	RiderID           string
	PickupLat         float64
	PickupLng         float64
	DropLat           float64
	DropLng           float64
	DistanceKm        float64
	DurationMin       float64
	BookingType       domain.BookingType
	TripType          domain.TripType
	WaitingAllowed    int
	PaymentMode       domain.PaymentMode
	PaymentInstrument domain.PaymentInstrument
}

// CreateRideResponse contains the result of creating a ride.
type CreateRideResponse struct {
	Ride          *domain.Ride
	DriverOffered bool
	OfferedDriver string
}

// CreateRide prices and persists a ride, then asks the coordinator for a
// candidate. A suspended rider is refused before anything is written; a
// ride with no candidate stays REQUESTED and unassigned.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*CreateRideResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	if err := s.policy.CheckCanCreate(ctx, req.RiderID); err != nil {
		return nil, err
	}

	fare := s.calculator.Calculate(TripParams{
		BookingType: req.BookingType,
		TripType:    req.TripType,
		DistanceKm:  req.DistanceKm,
		DurationMin: req.DurationMin,
	})

	ride := &domain.Ride{
		ID:                uuid.New().String(),
		RiderID:           req.RiderID,
		PickupLat:         req.PickupLat,
		PickupLng:         req.PickupLng,
		DropLat:           req.DropLat,
		DropLng:           req.DropLng,
		DistanceKm:        req.DistanceKm,
		DurationMin:       req.DurationMin,
		BookingType:       req.BookingType,
		TripType:          req.TripType,
		WaitingAllowed:    req.WaitingAllowed,
		Fare:              fare,
		Status:            domain.RideStatusRequested,
		PaymentMode:       req.PaymentMode,
		PaymentStatus:     domain.PaymentStatusUnpaid,
		PaymentInstrument: req.PaymentInstrument,
		CreatedAt:         time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	driverID, err := s.coordinator.Offer(ctx, ride)
	if err != nil {
		if errors.Is(err, ErrNoDriverAvailable) {
			return &CreateRideResponse{Ride: ride}, nil
		}
		return nil, err
	}

	ride.OfferedDriverID = driverID
	return &CreateRideResponse{
		Ride:          ride,
		DriverOffered: true,
		OfferedDriver: driverID,
	}, nil
}

// GetRide retrieves a ride. The verification code is never included.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// GetVerificationCode returns the ride's code to its rider only. The code
// exists from acceptance until the trip starts.
func (s *RideService) GetVerificationCode(ctx context.Context, rideID, riderID string) (string, error) {
	if rideID == "" {
		return "", ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return "", err
	}
	if ride.RiderID != riderID {
		return "", ErrNotRideParticipant
	}
	if ride.Status != domain.RideStatusAccepted && ride.Status != domain.RideStatusDriverArrived {
		return "", ErrInvalidRideState
	}

	return s.rideRepo.GetVerificationCode(ctx, rideID)
}

// MarkArrived transitions ACCEPTED to DRIVER_ARRIVED for the assigned
// driver. Any other current status fails with no mutation.
func (s *RideService) MarkArrived(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ok, err := s.rideRepo.TransitionIf(ctx, rideID, domain.RideStatusAccepted, domain.RideStatusDriverArrived, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, getErr := s.rideRepo.GetByID(ctx, rideID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidRideState
	}

	s.publishStatus(ctx, rideID, domain.RideStatusDriverArrived)
	return s.rideRepo.GetByID(ctx, rideID)
}

// VerifyCode transitions DRIVER_ARRIVED to ON_RIDE when the submitted code
// matches the ride's code exactly. The comparison and the transition are
// one conditional write; a mismatch changes nothing.
func (s *RideService) VerifyCode(ctx context.Context, rideID, code string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ok, err := s.rideRepo.VerifyCode(ctx, rideID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		ride, getErr := s.rideRepo.GetByID(ctx, rideID)
		if getErr != nil {
			return nil, getErr
		}
		if ride.Status != domain.RideStatusDriverArrived {
			return nil, ErrInvalidRideState
		}
		return nil, ErrInvalidVerificationCode
	}

	s.publishStatus(ctx, rideID, domain.RideStatusOnRide)
	return s.rideRepo.GetByID(ctx, rideID)
}

// Complete transitions ON_RIDE to COMPLETED for the assigned driver,
// stamps the completion time and locks the fare breakdown for good.
// Pay-now rides are marked paid on completion.
func (s *RideService) Complete(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	markPaid := ride.PaymentMode == domain.PaymentModePayNow

	ok, err := s.rideRepo.Complete(ctx, rideID, driverID, time.Now(), markPaid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidRideState
	}

	s.publishStatus(ctx, rideID, domain.RideStatusCompleted)
	return s.rideRepo.GetByID(ctx, rideID)
}

func (s *RideService) publishStatus(ctx context.Context, rideID string, status domain.RideStatus) {
	s.publisher.Publish(ctx, domain.RideTopic(rideID), domain.Event{
		Type:       domain.EventStatusChanged,
		RideID:     rideID,
		Status:     status,
		OccurredAt: time.Now(),
	})
}

func (s *RideService) validateCreateRequest(req CreateRideRequest) error {
	if req.RiderID == "" {
		return ErrInvalidRiderID
	}
	if !isValidLatitude(req.PickupLat) || !isValidLongitude(req.PickupLng) {
		return ErrInvalidLocation
	}
	if !isValidLatitude(req.DropLat) || !isValidLongitude(req.DropLng) {
		return ErrInvalidLocation
	}
	if req.DistanceKm < 0 || req.DurationMin < 0 {
		return ErrInvalidLocation
	}

	switch req.BookingType {
	case domain.BookingDistanceBased, domain.BookingTimeBased:
	default:
		return ErrInvalidBookingType
	}

	switch req.TripType {
	case domain.TripOneWay, domain.TripRoundTrip:
	default:
		return ErrInvalidTripType
	}

	switch req.PaymentMode {
	case domain.PaymentModePayNow, domain.PaymentModePayAfter:
	default:
		return ErrInvalidPaymentMode
	}

	switch req.PaymentInstrument {
	case domain.PaymentInstrumentCash, domain.PaymentInstrumentCard, domain.PaymentInstrumentWallet:
	default:
		return ErrInvalidPaymentInstrument
	}

	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
