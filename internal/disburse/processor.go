package disburse

import (
	"context"

	"dispatch/internal/domain"
)

// InstrumentKind selects which of a driver's instruments a payout targets.
type InstrumentKind string

const (
	KindBank InstrumentKind = "bank_account"
	KindVPA  InstrumentKind = "vpa"
)

// Payout is one disbursement instruction.
type Payout struct {
	Amount    float64
	Currency  string
	Reference string
	Note      string
}

// Processor is the external disbursement processor: payee identity
// management plus payout submission. Status confirmation arrives later via
// webhook, not on this interface.
type Processor interface {
	// EnsurePayee creates or reuses the external payee identity for a
	// driver and returns its id.
	EnsurePayee(ctx context.Context, inst domain.PayoutInstrument) (string, error)

	// EnsureFundAccount creates or reuses the fund account binding the
	// payee to one instrument and returns its id. The instrument's stored
	// fund account reference is reused when it matches the kind.
	EnsureFundAccount(ctx context.Context, payeeID string, inst domain.PayoutInstrument, kind InstrumentKind) (string, error)

	// Submit sends a payout instruction against a fund account and
	// returns the external disbursement id.
	Submit(ctx context.Context, fundAccountID string, kind InstrumentKind, payout Payout) (string, error)
}
