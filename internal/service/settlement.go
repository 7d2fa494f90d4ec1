package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dispatch/internal/disburse"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// SettlementService runs the weekly payout pipeline: read-only aggregation,
// re-runnable disbursement batches, and webhook reconciliation.
type SettlementService struct {
	rideRepo   repository.RideRepository
	payoutRepo repository.PayoutRepository
	driverRepo repository.DriverRepository
	processor  disburse.Processor
	calculator *FareCalculator
	log        *zap.Logger
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	rideRepo repository.RideRepository,
	payoutRepo repository.PayoutRepository,
	driverRepo repository.DriverRepository,
	processor disburse.Processor,
	calculator *FareCalculator,
	log *zap.Logger,
) *SettlementService {
	return &SettlementService{
		rideRepo:   rideRepo,
		payoutRepo: payoutRepo,
		driverRepo: driverRepo,
		processor:  processor,
		calculator: calculator,
		log:        log,
	}
}

// AggregateWeek groups the week's completed rides by driver and computes
// each driver's payable share. Read-only and idempotent; no payout records
// are created.
func (s *SettlementService) AggregateWeek(ctx context.Context, weekStart time.Time) ([]domain.WeeklyEarning, error) {
	start := domain.WeekStart(weekStart)
	end := start.AddDate(0, 0, 7)

	earnings, err := s.rideRepo.AggregateCompleted(ctx, start, end)
	if err != nil {
		return nil, err
	}

	for i := range earnings {
		earnings[i].PayableAmount = s.calculator.PayableShare(earnings[i].GrossFare)
	}
	return earnings, nil
}

// DisbursementSummary reports a batch's aggregate outcome. Per-driver
// failures are recorded on their payout records, never bubbled up.
type DisbursementSummary struct {
	WeekStart time.Time
	Submitted int
	Failed    int
	Skipped   int
}

// RunDisbursement executes the payout batch for a week. It upserts one
// payout record per (driver, week), leaving existing records untouched, then
// submits a payout instruction for every PENDING or FAILED record. Safe to
// re-run: an all-PAID week submits nothing.
func (s *SettlementService) RunDisbursement(ctx context.Context, weekStart time.Time, note string) (*DisbursementSummary, error) {
	start := domain.WeekStart(weekStart)
	end := start.AddDate(0, 0, 7)

	earnings, err := s.rideRepo.AggregateCompleted(ctx, start, end)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]*domain.PayoutRecord, 0, len(earnings))
	for _, e := range earnings {
		records = append(records, &domain.PayoutRecord{
			ID:            uuid.New().String(),
			DriverID:      e.DriverID,
			WeekStart:     start,
			WeekEnd:       end,
			RideCount:     e.RideCount,
			GrossFare:     e.GrossFare,
			PayableAmount: s.calculator.PayableShare(e.GrossFare),
			Status:        domain.PayoutStatusPending,
			Note:          note,
			CreatedAt:     now,
		})
	}

	if err := s.payoutRepo.EnsureForWeek(ctx, records); err != nil {
		return nil, err
	}

	actionable, err := s.payoutRepo.ListActionable(ctx, start)
	if err != nil {
		return nil, err
	}

	summary := &DisbursementSummary{
		WeekStart: start,
		Skipped:   len(records) - len(actionable),
	}
	if summary.Skipped < 0 {
		summary.Skipped = 0
	}

	for _, rec := range actionable {
		if err := s.disburseOne(ctx, rec); err != nil {
			// One driver's failure never aborts the batch.
			summary.Failed++
			s.log.Warn("disbursement failed",
				zap.String("driver_id", rec.DriverID),
				zap.Time("week_start", rec.WeekStart),
				zap.Error(err))
			if markErr := s.payoutRepo.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				s.log.Error("mark payout failed", zap.String("payout_id", rec.ID), zap.Error(markErr))
			}
			continue
		}
		summary.Submitted++
	}

	return summary, nil
}

// disburseOne resolves the driver's instrument, ensures the external payee
// and submits the payout, falling back from bank to the alternate
// instrument once.
func (s *SettlementService) disburseOne(ctx context.Context, rec *domain.PayoutRecord) error {
	inst, err := s.driverRepo.GetPayoutInstrument(ctx, rec.DriverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoPayoutInstrument
		}
		return err
	}
	if !inst.HasBank() && !inst.HasVPA() {
		return ErrNoPayoutInstrument
	}

	payeeID, err := s.processor.EnsurePayee(ctx, *inst)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalDependency, err)
	}

	payout := disburse.Payout{
		Amount:    rec.PayableAmount,
		Reference: rec.ID,
		Note:      rec.Note,
	}

	var primaryErr error
	if inst.HasBank() {
		err := s.submitVia(ctx, rec, inst, payeeID, disburse.KindBank, payout)
		if err == nil {
			return nil
		}
		primaryErr = err
	}

	if inst.HasVPA() {
		err := s.submitVia(ctx, rec, inst, payeeID, disburse.KindVPA, payout)
		if err == nil {
			return nil
		}
		if primaryErr != nil {
			return fmt.Errorf("%w: bank: %v; vpa: %v", ErrExternalDependency, primaryErr, err)
		}
		return fmt.Errorf("%w: vpa: %v", ErrExternalDependency, err)
	}

	return fmt.Errorf("%w: bank: %v", ErrExternalDependency, primaryErr)
}

// submitVia establishes the fund account for one instrument kind, submits
// the payout against it, and persists the external references so the next
// run reuses them instead of registering duplicates at the processor.
func (s *SettlementService) submitVia(ctx context.Context, rec *domain.PayoutRecord, inst *domain.PayoutInstrument, payeeID string, kind disburse.InstrumentKind, payout disburse.Payout) error {
	fundAccountID, err := s.processor.EnsureFundAccount(ctx, payeeID, *inst, kind)
	if err != nil {
		return err
	}

	disbursementID, err := s.processor.Submit(ctx, fundAccountID, kind, payout)
	if err != nil {
		return err
	}

	if inst.PayeeID != payeeID || inst.FundAccountID != fundAccountID || inst.FundAccountKind != string(kind) {
		if err := s.driverRepo.SavePayeeRefs(ctx, rec.DriverID, payeeID, fundAccountID, string(kind)); err != nil {
			s.log.Warn("save payee refs", zap.String("driver_id", rec.DriverID), zap.Error(err))
		}
	}

	return s.payoutRepo.MarkProcessing(ctx, rec.ID, disbursementID)
}

// ListWeek returns the week's payout records for reporting.
func (s *SettlementService) ListWeek(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error) {
	return s.payoutRepo.ListForWeek(ctx, domain.WeekStart(weekStart))
}

// HandleDisbursementEvent applies an asynchronous processor notification.
// Unknown disbursement ids are a no-op, and reapplying the same status
// yields the same record state. Signature verification happens before this
// is called.
func (s *SettlementService) HandleDisbursementEvent(ctx context.Context, disbursementID, processorStatus, reason string) error {
	if disbursementID == "" {
		return nil
	}

	var status domain.PayoutStatus
	var paidAt time.Time
	switch processorStatus {
	case "processed":
		status = domain.PayoutStatusPaid
		paidAt = time.Now()
	case "failed", "rejected", "reversed", "cancelled":
		status = domain.PayoutStatusFailed
		if reason == "" {
			reason = "disbursement " + processorStatus
		}
	default:
		status = domain.PayoutStatusProcessing
		reason = ""
	}

	applied, err := s.payoutRepo.ApplyReconciliation(ctx, disbursementID, status, reason, paidAt)
	if err != nil {
		return err
	}
	if !applied {
		s.log.Info("reconciliation for unknown disbursement",
			zap.String("disbursement_id", disbursementID),
			zap.String("status", processorStatus))
	}
	return nil
}
