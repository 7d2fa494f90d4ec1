package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RiderRepository is a PostgreSQL implementation of repository.RiderRepository.
type RiderRepository struct {
	q Querier
}

// NewRiderRepository creates a new PostgreSQL rider repository.
func NewRiderRepository(db *sql.DB) *RiderRepository {
	return &RiderRepository{q: db}
}

// Ensure creates the rider row if it does not exist.
func (r *RiderRepository) Ensure(ctx context.Context, riderID string) error {
	query := `
		INSERT INTO riders (id, cancel_count, cancel_count_date)
		VALUES ($1, 0, CURRENT_DATE)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.q.ExecContext(ctx, query, riderID)
	return err
}

// Get retrieves a rider's policy record.
func (r *RiderRepository) Get(ctx context.Context, riderID string) (*domain.Rider, error) {
	query := `
		SELECT id, cancel_count, cancel_count_date, COALESCE(blocked_until, 'epoch'::timestamptz)
		FROM riders WHERE id = $1
	`

	var rider domain.Rider
	err := r.q.QueryRowContext(ctx, query, riderID).Scan(
		&rider.ID, &rider.CancelCount, &rider.CancelCountDate, &rider.BlockedUntil,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rider, nil
}

// RecordCancellation rolls the daily counter and applies the suspension in
// one statement, so concurrent cancellations cannot lose an increment.
func (r *RiderRepository) RecordCancellation(ctx context.Context, riderID string, day time.Time, threshold int, blockUntil time.Time) (int, error) {
	query := `
		UPDATE riders
		SET cancel_count = CASE WHEN cancel_count_date = $2::date THEN cancel_count + 1 ELSE 1 END,
		    cancel_count_date = $2::date,
		    blocked_until = CASE
		        WHEN (CASE WHEN cancel_count_date = $2::date THEN cancel_count + 1 ELSE 1 END) >= $3
		        THEN $4
		        ELSE blocked_until
		    END
		WHERE id = $1
		RETURNING cancel_count
	`

	var count int
	err := r.q.QueryRowContext(ctx, query, riderID, day.UTC().Format("2006-01-02"), threshold, blockUntil).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}
