package domain

import "time"

// DriverAvailability is the per-driver presence record: one row per driver,
// created on the first status toggle and updated on every toggle/heartbeat.
type DriverAvailability struct {
	DriverID      string
	Online        bool
	Lat           float64
	Lng           float64
	LastHeartbeat time.Time
	UpdatedAt     time.Time
}

// PayoutInstrument carries a driver's disbursement destinations. Bank is
// the primary instrument; VPA is the fallback.
type PayoutInstrument struct {
	DriverID      string
	Name          string
	Contact       string
	BankAccount   string
	BankIFSC      string
	VPA           string
	PayeeID string // external payee identity, reused across payouts

	// FundAccountID is the external fund account last used successfully,
	// with the instrument kind it was created for. Settlement reuses it
	// instead of registering a duplicate every run.
	FundAccountID   string
	FundAccountKind string
}

// HasBank reports whether the primary bank instrument is usable.
func (p PayoutInstrument) HasBank() bool {
	return p.BankAccount != "" && p.BankIFSC != ""
}

// HasVPA reports whether the fallback instrument is usable.
func (p PayoutInstrument) HasVPA() bool {
	return p.VPA != ""
}
