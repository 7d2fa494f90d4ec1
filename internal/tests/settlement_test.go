package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"dispatch/internal/disburse"
	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// Monday of a fixed settlement week.
var testWeek = time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC)

func newSettlementService(rideRepo *MockRideRepository, payoutRepo *MockPayoutRepository, driverRepo *MockDriverRepository, processor *MockProcessor) *service.SettlementService {
	return service.NewSettlementService(rideRepo, payoutRepo, driverRepo, processor, service.NewFareCalculator(testPricing()), zap.NewNop())
}

func seedCompletedRide(rideRepo *MockRideRepository, id, driverID string, total float64, completedAt time.Time) {
	ride := newRequestedRide(id, "rider-1")
	ride.Status = domain.RideStatusCompleted
	ride.DriverID = driverID
	ride.Fare.Total = total
	ride.FinalFareLocked = true
	ride.CompletedAt = completedAt
	rideRepo.AddRide(ride)
}

func bankInstrument(driverID string) *domain.PayoutInstrument {
	return &domain.PayoutInstrument{
		DriverID:    driverID,
		Name:        "Test Driver",
		BankAccount: "001122334455",
		BankIFSC:    "TEST0001234",
	}
}

func TestAggregateWeek_ComputesPayableShare(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 600, testWeek.Add(24*time.Hour))
	seedCompletedRide(rideRepo, "ride-2", "driver-1", 400, testWeek.Add(48*time.Hour))
	seedCompletedRide(rideRepo, "ride-3", "driver-2", 250, testWeek.Add(72*time.Hour))
	// Outside the week: excluded.
	seedCompletedRide(rideRepo, "ride-4", "driver-1", 999, testWeek.AddDate(0, 0, 7))
	svc := newSettlementService(rideRepo, NewMockPayoutRepository(), NewMockDriverRepository(), NewMockProcessor())

	// A mid-week timestamp normalizes to the same Monday.
	earnings, err := svc.AggregateWeek(context.Background(), testWeek.Add(60*time.Hour))
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(earnings) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(earnings))
	}

	byDriver := make(map[string]domain.WeeklyEarning)
	for _, e := range earnings {
		byDriver[e.DriverID] = e
	}
	if e := byDriver["driver-1"]; e.RideCount != 2 || e.GrossFare != 1000 || e.PayableAmount != 500 {
		t.Errorf("driver-1: unexpected earning %+v", e)
	}
	if e := byDriver["driver-2"]; e.RideCount != 1 || e.GrossFare != 250 || e.PayableAmount != 125 {
		t.Errorf("driver-2: unexpected earning %+v", e)
	}
}

func TestRunDisbursement_SubmitsAndMarksProcessing(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	seedCompletedRide(rideRepo, "ride-2", "driver-2", 500, testWeek.Add(48*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	driverRepo.AddInstrument(bankInstrument("driver-2"))
	processor := NewMockProcessor()
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, processor)

	summary, err := svc.RunDisbursement(context.Background(), testWeek, "weekly run")
	if err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}
	if summary.Submitted != 2 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	for _, driverID := range []string{"driver-1", "driver-2"} {
		rec := payoutRepo.Record(driverID, testWeek)
		if rec == nil {
			t.Fatalf("%s: expected a payout record", driverID)
		}
		if rec.Status != domain.PayoutStatusProcessing {
			t.Errorf("%s: expected PROCESSING, got %s", driverID, rec.Status)
		}
		if rec.DisbursementID == "" {
			t.Errorf("%s: expected a disbursement id", driverID)
		}
	}
	if rec := payoutRepo.Record("driver-1", testWeek); rec.PayableAmount != 500 {
		t.Errorf("expected payable 500, got %v", rec.PayableAmount)
	}
	if len(processor.Submissions) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(processor.Submissions))
	}
	for _, sub := range processor.Submissions {
		if sub.Kind != disburse.KindBank {
			t.Errorf("expected the bank instrument preferred, got %s", sub.Kind)
		}
	}
}

func TestRunDisbursement_RerunSkipsSettledRecords(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, NewMockProcessor())

	ctx := context.Background()
	if _, err := svc.RunDisbursement(ctx, testWeek, ""); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	rec := payoutRepo.Record("driver-1", testWeek)
	if err := svc.HandleDisbursementEvent(ctx, rec.DisbursementID, "processed", ""); err != nil {
		t.Fatalf("reconciliation failed: %v", err)
	}

	summary, err := svc.RunDisbursement(ctx, testWeek, "")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Submitted != 0 || summary.Skipped != 1 {
		t.Fatalf("expected an all-settled rerun to submit nothing, got %+v", summary)
	}
	if got := payoutRepo.Record("driver-1", testWeek).Status; got != domain.PayoutStatusPaid {
		t.Errorf("expected PAID untouched by the rerun, got %s", got)
	}
}

func TestRunDisbursement_BankFailure_FallsBackToVPA(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	inst := bankInstrument("driver-1")
	inst.VPA = "driver1@upi"
	driverRepo.AddInstrument(inst)
	processor := NewMockProcessor()
	processor.BankError = errors.New("beneficiary bank unreachable")
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, processor)

	summary, err := svc.RunDisbursement(context.Background(), testWeek, "")
	if err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}
	if summary.Submitted != 1 || summary.Failed != 0 {
		t.Fatalf("expected the fallback to succeed, got %+v", summary)
	}
	if got := payoutRepo.Record("driver-1", testWeek).Status; got != domain.PayoutStatusProcessing {
		t.Errorf("expected PROCESSING, got %s", got)
	}
	last := processor.Submissions[len(processor.Submissions)-1]
	if last.Kind != disburse.KindVPA {
		t.Errorf("expected the VPA fallback used, got %s", last.Kind)
	}
}

func TestRunDisbursement_OneFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	seedCompletedRide(rideRepo, "ride-2", "driver-2", 500, testWeek.Add(48*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	// driver-1 has no payout instrument at all.
	driverRepo.AddInstrument(bankInstrument("driver-2"))
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, NewMockProcessor())

	summary, err := svc.RunDisbursement(context.Background(), testWeek, "")
	if err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}
	if summary.Submitted != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	failed := payoutRepo.Record("driver-1", testWeek)
	if failed.Status != domain.PayoutStatusFailed || failed.FailureReason == "" {
		t.Errorf("expected FAILED with a reason, got %+v", failed)
	}
	if got := payoutRepo.Record("driver-2", testWeek).Status; got != domain.PayoutStatusProcessing {
		t.Errorf("expected driver-2 unaffected, got %s", got)
	}
}

func TestRunDisbursement_FailedRecordRetriedOnRerun(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	processor := NewMockProcessor()
	processor.BankError = errors.New("processor outage")
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, processor)

	ctx := context.Background()
	summary, err := svc.RunDisbursement(ctx, testWeek, "")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected the outage recorded as a failure, got %+v", summary)
	}

	processor.BankError = nil
	summary, err = svc.RunDisbursement(ctx, testWeek, "")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Submitted != 1 {
		t.Fatalf("expected the FAILED record retried, got %+v", summary)
	}
	rec := payoutRepo.Record("driver-1", testWeek)
	if rec.Status != domain.PayoutStatusProcessing || rec.FailureReason != "" {
		t.Errorf("expected a clean PROCESSING record, got %+v", rec)
	}
}

func TestRunDisbursement_PersistsPayeeReference(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	svc := newSettlementService(rideRepo, NewMockPayoutRepository(), driverRepo, NewMockProcessor())

	if _, err := svc.RunDisbursement(context.Background(), testWeek, ""); err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}

	inst, err := driverRepo.GetPayoutInstrument(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("instrument read failed: %v", err)
	}
	if inst.PayeeID != "payee-driver-1" {
		t.Errorf("expected the payee reference saved, got %q", inst.PayeeID)
	}
	if inst.FundAccountID == "" || inst.FundAccountKind != string(disburse.KindBank) {
		t.Errorf("expected the fund account reference saved, got %q (%q)", inst.FundAccountID, inst.FundAccountKind)
	}
}

func TestRunDisbursement_ReusesFundAccountAcrossRuns(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	processor := NewMockProcessor()
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, processor)

	ctx := context.Background()
	if _, err := svc.RunDisbursement(ctx, testWeek, ""); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// The processor reports the first attempt as failed, making the record
	// actionable again.
	disbursementID := payoutRepo.Record("driver-1", testWeek).DisbursementID
	if err := svc.HandleDisbursementEvent(ctx, disbursementID, "failed", "bank rejected"); err != nil {
		t.Fatalf("reconciliation failed: %v", err)
	}

	summary, err := svc.RunDisbursement(ctx, testWeek, "")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Submitted != 1 {
		t.Fatalf("expected a resubmission, got %+v", summary)
	}
	if len(processor.Submissions) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(processor.Submissions))
	}
	if processor.FundAccountsCreated != 1 {
		t.Errorf("expected the fund account registered once, got %d", processor.FundAccountsCreated)
	}
	if processor.Submissions[0].FundAccountID != processor.Submissions[1].FundAccountID {
		t.Error("expected both submissions against the same fund account")
	}
}

func TestHandleDisbursementEvent_Processed_MarksPaid(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, NewMockProcessor())

	ctx := context.Background()
	if _, err := svc.RunDisbursement(ctx, testWeek, ""); err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}
	disbursementID := payoutRepo.Record("driver-1", testWeek).DisbursementID

	if err := svc.HandleDisbursementEvent(ctx, disbursementID, "processed", ""); err != nil {
		t.Fatalf("event failed: %v", err)
	}
	rec := payoutRepo.Record("driver-1", testWeek)
	if rec.Status != domain.PayoutStatusPaid {
		t.Fatalf("expected PAID, got %s", rec.Status)
	}
	if rec.PaidAt.IsZero() {
		t.Error("expected paid_at stamped")
	}

	// Redelivery changes nothing, including the original paid_at stamp.
	firstPaidAt := rec.PaidAt
	time.Sleep(10 * time.Millisecond)
	if err := svc.HandleDisbursementEvent(ctx, disbursementID, "processed", ""); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	rec = payoutRepo.Record("driver-1", testWeek)
	if rec.Status != domain.PayoutStatusPaid {
		t.Errorf("expected PAID after redelivery, got %s", rec.Status)
	}
	if !rec.PaidAt.Equal(firstPaidAt) {
		t.Errorf("expected paid_at stable across redelivery, first=%v second=%v", firstPaidAt, rec.PaidAt)
	}
}

func TestHandleDisbursementEvent_Failed_RecordsReason(t *testing.T) {
	t.Parallel()

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, NewMockProcessor())

	ctx := context.Background()
	if _, err := svc.RunDisbursement(ctx, testWeek, ""); err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}
	disbursementID := payoutRepo.Record("driver-1", testWeek).DisbursementID

	if err := svc.HandleDisbursementEvent(ctx, disbursementID, "reversed", "account closed"); err != nil {
		t.Fatalf("event failed: %v", err)
	}
	rec := payoutRepo.Record("driver-1", testWeek)
	if rec.Status != domain.PayoutStatusFailed {
		t.Errorf("expected FAILED, got %s", rec.Status)
	}
	if rec.FailureReason != "account closed" {
		t.Errorf("expected the reason recorded, got %q", rec.FailureReason)
	}
}

func TestHandleDisbursementEvent_UnknownID_NoOp(t *testing.T) {
	t.Parallel()

	svc := newSettlementService(NewMockRideRepository(), NewMockPayoutRepository(), NewMockDriverRepository(), NewMockProcessor())

	if err := svc.HandleDisbursementEvent(context.Background(), "disb-unknown", "processed", ""); err != nil {
		t.Fatalf("expected an unknown id tolerated, got %v", err)
	}
	if err := svc.HandleDisbursementEvent(context.Background(), "", "processed", ""); err != nil {
		t.Fatalf("expected an empty id tolerated, got %v", err)
	}
}
