package app

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the schema if it does not exist. Safe to run on every
// boot: all statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rides (
		id TEXT PRIMARY KEY,
		rider_id TEXT NOT NULL,
		driver_id TEXT,
		offered_driver_id TEXT,
		pickup_lat DOUBLE PRECISION NOT NULL,
		pickup_lng DOUBLE PRECISION NOT NULL,
		drop_lat DOUBLE PRECISION NOT NULL,
		drop_lng DOUBLE PRECISION NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		duration_min DOUBLE PRECISION NOT NULL DEFAULT 0,
		booking_type TEXT NOT NULL,
		trip_type TEXT NOT NULL,
		waiting_allowed INTEGER NOT NULL DEFAULT 0,
		fare_base DOUBLE PRECISION NOT NULL DEFAULT 0,
		fare_distance DOUBLE PRECISION NOT NULL DEFAULT 0,
		fare_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		fare_waiting DOUBLE PRECISION NOT NULL DEFAULT 0,
		fare_total DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		assigned_at TIMESTAMPTZ,
		request_expires_at TIMESTAMPTZ,
		otp_code TEXT,
		otp_verified BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at TIMESTAMPTZ,
		final_fare_locked BOOLEAN NOT NULL DEFAULT FALSE,
		payment_mode TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'UNPAID',
		payment_instrument TEXT NOT NULL,
		rejected_driver_ids TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		cancelled_at TIMESTAMPTZ,
		cancel_reason TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_rides_rider ON rides (rider_id);
	CREATE INDEX IF NOT EXISTS idx_rides_driver_status ON rides (driver_id, status);
	CREATE INDEX IF NOT EXISTS idx_rides_completed_at ON rides (completed_at) WHERE status = 'COMPLETED';

	CREATE TABLE IF NOT EXISTS riders (
		id TEXT PRIMARY KEY,
		cancel_count INTEGER NOT NULL DEFAULT 0,
		cancel_count_date DATE NOT NULL DEFAULT CURRENT_DATE,
		blocked_until TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS driver_availability (
		driver_id TEXT PRIMARY KEY,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		last_heartbeat TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS driver_instruments (
		driver_id TEXT PRIMARY KEY,
		name TEXT,
		contact TEXT,
		bank_account TEXT,
		bank_ifsc TEXT,
		vpa TEXT,
		payee_id TEXT,
		fund_account_id TEXT,
		fund_account_kind TEXT
	);

	CREATE TABLE IF NOT EXISTS waiting_sessions (
		id TEXT PRIMARY KEY,
		ride_id TEXT NOT NULL REFERENCES rides (id),
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		extra_minutes INTEGER NOT NULL DEFAULT 0,
		extra_charge DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_waiting_open
		ON waiting_sessions (ride_id) WHERE ended_at IS NULL;

	CREATE TABLE IF NOT EXISTS payout_records (
		id TEXT PRIMARY KEY,
		driver_id TEXT NOT NULL,
		week_start DATE NOT NULL,
		week_end DATE NOT NULL,
		ride_count INTEGER NOT NULL DEFAULT 0,
		gross_fare DOUBLE PRECISION NOT NULL DEFAULT 0,
		payable_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		disbursement_id TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		failure_reason TEXT,
		note TEXT,
		paid_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (driver_id, week_start)
	);
	CREATE INDEX IF NOT EXISTS idx_payouts_disbursement ON payout_records (disbursement_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
