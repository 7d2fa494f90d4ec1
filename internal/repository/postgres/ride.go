package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// rideColumns lists the default read set. otp_code is deliberately absent:
// the code never travels through default read paths.
const rideColumns = `
	id, rider_id, driver_id, offered_driver_id,
	pickup_lat, pickup_lng, drop_lat, drop_lng,
	distance_km, duration_min, booking_type, trip_type, waiting_allowed,
	fare_base, fare_distance, fare_time, fare_waiting, fare_total,
	status, assigned_at, request_expires_at, otp_verified,
	completed_at, final_fare_locked,
	payment_mode, payment_status, payment_instrument,
	rejected_driver_ids, created_at, cancelled_at, cancel_reason
`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (
			id, rider_id,
			pickup_lat, pickup_lng, drop_lat, drop_lng,
			distance_km, duration_min, booking_type, trip_type, waiting_allowed,
			fare_base, fare_distance, fare_time, fare_waiting, fare_total,
			status, payment_mode, payment_status, payment_instrument,
			rejected_driver_ids, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		        $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		ride.PickupLat,
		ride.PickupLng,
		ride.DropLat,
		ride.DropLng,
		ride.DistanceKm,
		ride.DurationMin,
		ride.BookingType,
		ride.TripType,
		ride.WaitingAllowed,
		ride.Fare.Base,
		ride.Fare.Distance,
		ride.Fare.Time,
		ride.Fare.Waiting,
		ride.Fare.Total,
		ride.Status,
		ride.PaymentMode,
		ride.PaymentStatus,
		ride.PaymentInstrument,
		pq.Array(ride.RejectedDriverIDs),
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID. The verification code is not loaded.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, offeredDriverID, cancelReason sql.NullString
	var assignedAt, expiresAt, completedAt, cancelledAt sql.NullTime
	var rejected pq.StringArray

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&offeredDriverID,
		&ride.PickupLat,
		&ride.PickupLng,
		&ride.DropLat,
		&ride.DropLng,
		&ride.DistanceKm,
		&ride.DurationMin,
		&ride.BookingType,
		&ride.TripType,
		&ride.WaitingAllowed,
		&ride.Fare.Base,
		&ride.Fare.Distance,
		&ride.Fare.Time,
		&ride.Fare.Waiting,
		&ride.Fare.Total,
		&ride.Status,
		&assignedAt,
		&expiresAt,
		&ride.OTPVerified,
		&completedAt,
		&ride.FinalFareLocked,
		&ride.PaymentMode,
		&ride.PaymentStatus,
		&ride.PaymentInstrument,
		&rejected,
		&ride.CreatedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if offeredDriverID.Valid {
		ride.OfferedDriverID = offeredDriverID.String
	}
	if assignedAt.Valid {
		ride.AssignedAt = assignedAt.Time
	}
	if expiresAt.Valid {
		ride.RequestExpiresAt = expiresAt.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}
	ride.RejectedDriverIDs = []string(rejected)

	return &ride, nil
}

// GetVerificationCode loads the write-protected code for a ride.
func (r *RideRepository) GetVerificationCode(ctx context.Context, id string) (string, error) {
	var code sql.NullString
	err := r.q.QueryRowContext(ctx, `SELECT otp_code FROM rides WHERE id = $1`, id).Scan(&code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return code.String, nil
}

// Offer attaches a candidate driver and acceptance expiry to a REQUESTED
// ride without changing its status.
func (r *RideRepository) Offer(ctx context.Context, rideID, driverID string, assignedAt, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE rides
		SET offered_driver_id = $2, assigned_at = $3, request_expires_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.q.ExecContext(ctx, query, rideID, driverID, assignedAt, expiresAt, domain.RideStatusRequested)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// ClearOffer strips any pending offer from a REQUESTED ride.
func (r *RideRepository) ClearOffer(ctx context.Context, rideID string) error {
	query := `
		UPDATE rides
		SET offered_driver_id = NULL, assigned_at = NULL, request_expires_at = NULL
		WHERE id = $1 AND status = $2
	`
	_, err := r.q.ExecContext(ctx, query, rideID, domain.RideStatusRequested)
	return err
}

// Accept performs the compare-and-set that resolves the accept race: the
// write succeeds only when the ride is still REQUESTED, and exactly one
// concurrent caller can win it.
func (r *RideRepository) Accept(ctx context.Context, rideID, driverID, code string, at time.Time) (bool, error) {
	query := `
		UPDATE rides
		SET status = $2, driver_id = $3, offered_driver_id = NULL,
		    otp_code = $4, otp_verified = FALSE,
		    assigned_at = $5, request_expires_at = NULL
		WHERE id = $1 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		rideID, domain.RideStatusAccepted, driverID, code, at, domain.RideStatusRequested)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// Reject records the driver in the rejected set and strips any pending
// offer, leaving the ride eligible for re-assignment.
func (r *RideRepository) Reject(ctx context.Context, rideID, driverID string) error {
	query := `
		UPDATE rides
		SET rejected_driver_ids = array_append(rejected_driver_ids, $2),
		    offered_driver_id = NULL, assigned_at = NULL, request_expires_at = NULL
		WHERE id = $1 AND status = $3 AND NOT ($2 = ANY(rejected_driver_ids))
	`
	_, err := r.q.ExecContext(ctx, query, rideID, driverID, domain.RideStatusRequested)
	return err
}

// TransitionIf moves the ride from exactly `from` to `to`. A non-empty
// driverID additionally requires the assigned driver to match.
func (r *RideRepository) TransitionIf(ctx context.Context, rideID string, from, to domain.RideStatus, driverID string) (bool, error) {
	query := `
		UPDATE rides SET status = $2
		WHERE id = $1 AND status = $3 AND ($4 = '' OR driver_id = $4)
	`

	result, err := r.q.ExecContext(ctx, query, rideID, to, from, driverID)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// VerifyCode moves DRIVER_ARRIVED to ON_RIDE when the supplied code matches
// the stored one exactly. Comparison happens inside the conditional write
// so a mismatch mutates nothing.
func (r *RideRepository) VerifyCode(ctx context.Context, rideID, code string) (bool, error) {
	query := `
		UPDATE rides SET status = $2, otp_verified = TRUE
		WHERE id = $1 AND status = $3 AND otp_code = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		rideID, domain.RideStatusOnRide, domain.RideStatusDriverArrived, code)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// Complete moves ON_RIDE to COMPLETED for the assigned driver, stamps the
// completion time and locks the fare breakdown.
func (r *RideRepository) Complete(ctx context.Context, rideID, driverID string, at time.Time, markPaid bool) (bool, error) {
	query := `
		UPDATE rides
		SET status = $2, completed_at = $3, final_fare_locked = TRUE,
		    payment_status = CASE WHEN $4 THEN 'PAID' ELSE payment_status END
		WHERE id = $1 AND status = $5 AND driver_id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		rideID, domain.RideStatusCompleted, at, markPaid, domain.RideStatusOnRide, driverID)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// CancelIf cancels the ride when its status is one of `allowed`.
func (r *RideRepository) CancelIf(ctx context.Context, rideID string, allowed []domain.RideStatus, to domain.RideStatus, at time.Time, reason string) (bool, error) {
	statuses := make([]string, len(allowed))
	for i, s := range allowed {
		statuses[i] = string(s)
	}

	query := `
		UPDATE rides SET status = $2, cancelled_at = $3, cancel_reason = $4
		WHERE id = $1 AND status = ANY($5)
	`

	result, err := r.q.ExecContext(ctx, query, rideID, to, at, reason, pq.Array(statuses))
	if err != nil {
		return false, err
	}
	return affected(result)
}

// AddWaitingCharge adds amount to both the waiting and total components in
// one increment, preserving total = base + distance + time + waiting.
// Locked fares are immutable.
func (r *RideRepository) AddWaitingCharge(ctx context.Context, rideID string, amount float64) (bool, error) {
	query := `
		UPDATE rides
		SET fare_waiting = fare_waiting + $2, fare_total = fare_total + $2
		WHERE id = $1 AND final_fare_locked = FALSE
	`

	result, err := r.q.ExecContext(ctx, query, rideID, amount)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// AggregateCompleted groups COMPLETED rides with completion times in
// [start, end) by driver.
func (r *RideRepository) AggregateCompleted(ctx context.Context, start, end time.Time) ([]domain.WeeklyEarning, error) {
	query := `
		SELECT driver_id, COUNT(*), COALESCE(SUM(fare_total), 0)
		FROM rides
		WHERE status = $1 AND completed_at >= $2 AND completed_at < $3
		GROUP BY driver_id
		ORDER BY driver_id
	`

	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusCompleted, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var earnings []domain.WeeklyEarning
	for rows.Next() {
		var e domain.WeeklyEarning
		if err := rows.Scan(&e.DriverID, &e.RideCount, &e.GrossFare); err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

// affected maps RowsAffected onto the conditional-write contract.
func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
