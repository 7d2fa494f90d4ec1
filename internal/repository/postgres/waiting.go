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

// WaitingRepository is a PostgreSQL implementation of
// repository.WaitingRepository. A partial unique index on
// (ride_id) WHERE ended_at IS NULL enforces the one-open-session rule.
type WaitingRepository struct {
	q Querier
}

// NewWaitingRepository creates a new PostgreSQL waiting repository.
func NewWaitingRepository(db *sql.DB) *WaitingRepository {
	return &WaitingRepository{q: db}
}

// Open creates a new open session.
func (r *WaitingRepository) Open(ctx context.Context, session *domain.WaitingSession) error {
	query := `
		INSERT INTO waiting_sessions (id, ride_id, started_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.q.ExecContext(ctx, query, session.ID, session.RideID, session.StartedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetOpen retrieves the ride's open session.
func (r *WaitingRepository) GetOpen(ctx context.Context, rideID string) (*domain.WaitingSession, error) {
	query := `
		SELECT id, ride_id, started_at
		FROM waiting_sessions
		WHERE ride_id = $1 AND ended_at IS NULL
	`

	var s domain.WaitingSession
	err := r.q.QueryRowContext(ctx, query, rideID).Scan(&s.ID, &s.RideID, &s.StartedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CloseOpen closes the ride's open session. The ended_at IS NULL condition
// makes a concurrent second close fail cleanly.
func (r *WaitingRepository) CloseOpen(ctx context.Context, rideID string, endedAt time.Time, extraMinutes int, extraCharge float64) (bool, error) {
	query := `
		UPDATE waiting_sessions
		SET ended_at = $2, extra_minutes = $3, extra_charge = $4
		WHERE ride_id = $1 AND ended_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, rideID, endedAt, extraMinutes, extraCharge)
	if err != nil {
		return false, err
	}
	return affected(result)
}
