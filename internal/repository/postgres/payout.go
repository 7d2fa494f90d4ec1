package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PayoutRepository is a PostgreSQL implementation of repository.PayoutRepository.
type PayoutRepository struct {
	q Querier
}

// NewPayoutRepository creates a new PostgreSQL payout repository.
func NewPayoutRepository(db *sql.DB) *PayoutRepository {
	return &PayoutRepository{q: db}
}

// EnsureForWeek inserts the given records, skipping (driver, week_start)
// pairs that already exist. Existing records keep their status, so a
// re-run never resets a PAID or PROCESSING week.
func (r *PayoutRepository) EnsureForWeek(ctx context.Context, records []*domain.PayoutRecord) error {
	query := `
		INSERT INTO payout_records (
			id, driver_id, week_start, week_end, ride_count,
			gross_fare, payable_amount, status, note, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (driver_id, week_start) DO NOTHING
	`

	for _, rec := range records {
		_, err := r.q.ExecContext(ctx, query,
			rec.ID, rec.DriverID, rec.WeekStart, rec.WeekEnd, rec.RideCount,
			rec.GrossFare, rec.PayableAmount, rec.Status, rec.Note, rec.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const payoutColumns = `
	id, driver_id, week_start, week_end, ride_count,
	gross_fare, payable_amount, disbursement_id, status,
	failure_reason, note, paid_at, created_at
`

// ListActionable returns the week's PENDING and FAILED records.
func (r *PayoutRepository) ListActionable(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_records
		WHERE week_start = $1 AND status IN ($2, $3)
		ORDER BY driver_id
	`
	return r.list(ctx, query, weekStart, domain.PayoutStatusPending, domain.PayoutStatusFailed)
}

// ListForWeek returns all of the week's records.
func (r *PayoutRepository) ListForWeek(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_records
		WHERE week_start = $1
		ORDER BY driver_id
	`
	return r.list(ctx, query, weekStart)
}

func (r *PayoutRepository) list(ctx context.Context, query string, args ...any) ([]*domain.PayoutRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PayoutRecord
	for rows.Next() {
		rec, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanPayout(row rowScanner) (*domain.PayoutRecord, error) {
	var rec domain.PayoutRecord
	var disbursementID, failureReason, note sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.DriverID, &rec.WeekStart, &rec.WeekEnd, &rec.RideCount,
		&rec.GrossFare, &rec.PayableAmount, &disbursementID, &rec.Status,
		&failureReason, &note, &paidAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if disbursementID.Valid {
		rec.DisbursementID = disbursementID.String
	}
	if failureReason.Valid {
		rec.FailureReason = failureReason.String
	}
	if note.Valid {
		rec.Note = note.String
	}
	if paidAt.Valid {
		rec.PaidAt = paidAt.Time
	}
	return &rec, nil
}

// MarkProcessing records a submitted disbursement and clears any previous
// failure reason.
func (r *PayoutRepository) MarkProcessing(ctx context.Context, id, disbursementID string) error {
	query := `
		UPDATE payout_records
		SET status = $2, disbursement_id = $3, failure_reason = NULL
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, domain.PayoutStatusProcessing, disbursementID)
	if err != nil {
		return err
	}
	return mustAffect(result)
}

// MarkFailed records a submission failure.
func (r *PayoutRepository) MarkFailed(ctx context.Context, id, reason string) error {
	query := `UPDATE payout_records SET status = $2, failure_reason = $3 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, domain.PayoutStatusFailed, reason)
	if err != nil {
		return err
	}
	return mustAffect(result)
}

// ApplyReconciliation maps an asynchronous processor status onto the record
// identified by its external disbursement id. Redelivery is a no-op: an
// already-stamped paid_at is kept, so applying the same event twice leaves
// the record exactly as the first application did.
func (r *PayoutRepository) ApplyReconciliation(ctx context.Context, disbursementID string, status domain.PayoutStatus, reason string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payout_records
		SET status = $2,
		    failure_reason = NULLIF($3, ''),
		    paid_at = CASE WHEN $2 = 'PAID' THEN COALESCE(paid_at, $4) ELSE paid_at END
		WHERE disbursement_id = $1
	`

	var paid sql.NullTime
	if !paidAt.IsZero() {
		paid = sql.NullTime{Time: paidAt, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query, disbursementID, status, reason, paid)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func mustAffect(result sql.Result) error {
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}
