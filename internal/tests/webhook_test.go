package tests

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dispatch/internal/disburse"
	"dispatch/internal/domain"
	"dispatch/internal/handler"
)

const webhookSecret = "whsec_test"

// webhookFixture wires a settlement service with one PROCESSING payout
// behind the webhook endpoint.
func webhookFixture(t *testing.T) (*gin.Engine, *MockPayoutRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rideRepo := NewMockRideRepository()
	seedCompletedRide(rideRepo, "ride-1", "driver-1", 1000, testWeek.Add(24*time.Hour))
	payoutRepo := NewMockPayoutRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddInstrument(bankInstrument("driver-1"))
	svc := newSettlementService(rideRepo, payoutRepo, driverRepo, NewMockProcessor())
	if _, err := svc.RunDisbursement(context.Background(), testWeek, ""); err != nil {
		t.Fatalf("disbursement failed: %v", err)
	}

	router := gin.New()
	router.POST("/webhooks/disbursement", handler.NewWebhookHandler(svc, webhookSecret, zap.NewNop()).HandleDisbursement)
	return router, payoutRepo
}

func postWebhook(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/disbursement", bytes.NewReader(body))
	req.Header.Set("X-Disburse-Signature", signature)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_ValidEvent_Reconciles(t *testing.T) {
	t.Parallel()

	router, payoutRepo := webhookFixture(t)
	disbursementID := payoutRepo.Record("driver-1", testWeek).DisbursementID

	body := []byte(fmt.Sprintf(
		`{"event":"payout.processed","payload":{"payout":{"entity":{"id":"%s","status":"processed"}}}}`,
		disbursementID))

	rec := postWebhook(router, body, disburse.Sign(body, webhookSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := payoutRepo.Record("driver-1", testWeek).Status; got != domain.PayoutStatusPaid {
		t.Errorf("expected PAID, got %s", got)
	}
}

func TestWebhook_BadSignature_AppliesNothing(t *testing.T) {
	t.Parallel()

	router, payoutRepo := webhookFixture(t)
	disbursementID := payoutRepo.Record("driver-1", testWeek).DisbursementID

	body := []byte(fmt.Sprintf(
		`{"event":"payout.processed","payload":{"payout":{"entity":{"id":"%s","status":"processed"}}}}`,
		disbursementID))

	rec := postWebhook(router, body, disburse.Sign(body, "wrong-secret"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := payoutRepo.Record("driver-1", testWeek).Status; got != domain.PayoutStatusProcessing {
		t.Errorf("expected the record untouched, got %s", got)
	}
}

func TestWebhook_MalformedPayload_StillAcknowledged(t *testing.T) {
	t.Parallel()

	router, payoutRepo := webhookFixture(t)

	body := []byte(`{"event": not-json`)
	rec := postWebhook(router, body, disburse.Sign(body, webhookSecret))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected an authenticated delivery acknowledged, got %d", rec.Code)
	}
	if got := payoutRepo.Record("driver-1", testWeek).Status; got != domain.PayoutStatusProcessing {
		t.Errorf("expected the record untouched, got %s", got)
	}
}
