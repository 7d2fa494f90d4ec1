package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// SetOnline toggles the driver's online flag, creating the availability
// record on first use.
func (r *DriverRepository) SetOnline(ctx context.Context, driverID string, online bool, at time.Time) error {
	query := `
		INSERT INTO driver_availability (driver_id, online, last_heartbeat, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (driver_id)
		DO UPDATE SET online = $2, last_heartbeat = $3, updated_at = $3
	`
	_, err := r.q.ExecContext(ctx, query, driverID, online, at)
	return err
}

// Heartbeat updates the driver's last-known position and heartbeat.
func (r *DriverRepository) Heartbeat(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	query := `
		INSERT INTO driver_availability (driver_id, online, lat, lng, last_heartbeat, updated_at)
		VALUES ($1, TRUE, $2, $3, $4, $4)
		ON CONFLICT (driver_id)
		DO UPDATE SET lat = $2, lng = $3, last_heartbeat = $4, updated_at = $4
	`
	_, err := r.q.ExecContext(ctx, query, driverID, lat, lng, at)
	return err
}

// GetPayoutInstrument retrieves a driver's disbursement destinations.
func (r *DriverRepository) GetPayoutInstrument(ctx context.Context, driverID string) (*domain.PayoutInstrument, error) {
	query := `
		SELECT driver_id, COALESCE(name, ''), COALESCE(contact, ''),
		       COALESCE(bank_account, ''), COALESCE(bank_ifsc, ''), COALESCE(vpa, ''),
		       COALESCE(payee_id, ''), COALESCE(fund_account_id, ''), COALESCE(fund_account_kind, '')
		FROM driver_instruments WHERE driver_id = $1
	`

	var inst domain.PayoutInstrument
	err := r.q.QueryRowContext(ctx, query, driverID).Scan(
		&inst.DriverID, &inst.Name, &inst.Contact,
		&inst.BankAccount, &inst.BankIFSC, &inst.VPA,
		&inst.PayeeID, &inst.FundAccountID, &inst.FundAccountKind,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &inst, nil
}

// SavePayeeRefs stores the external payee and fund account references for
// reuse.
func (r *DriverRepository) SavePayeeRefs(ctx context.Context, driverID, payeeID, fundAccountID, fundAccountKind string) error {
	query := `
		UPDATE driver_instruments
		SET payee_id = $2, fund_account_id = $3, fund_account_kind = $4
		WHERE driver_id = $1
	`
	_, err := r.q.ExecContext(ctx, query, driverID, payeeID, fundAccountID, fundAccountKind)
	return err
}
