package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// PayoutRepository defines persistence for weekly payout records. The
// (driver, week_start) pair is unique; inserts for an existing pair are
// no-ops so settlement can be re-run safely.
type PayoutRepository interface {
	// EnsureForWeek inserts the given records, silently skipping pairs
	// that already exist in any status.
	EnsureForWeek(ctx context.Context, records []*domain.PayoutRecord) error

	// ListActionable returns the week's records in PENDING or FAILED
	// status, the only ones a disbursement batch may touch.
	ListActionable(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error)

	// ListForWeek returns all of the week's records.
	ListForWeek(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error)

	// MarkProcessing records a submitted disbursement and clears any
	// previous failure reason.
	MarkProcessing(ctx context.Context, id, disbursementID string) error

	// MarkFailed records a submission failure.
	MarkFailed(ctx context.Context, id, reason string) error

	// ApplyReconciliation maps an asynchronous processor status onto the
	// record identified by its external disbursement id. Returns false
	// when no record matches; reapplying the same status is a no-op.
	ApplyReconciliation(ctx context.Context, disbursementID string, status domain.PayoutStatus, reason string, paidAt time.Time) (bool, error)
}
