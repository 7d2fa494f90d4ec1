package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dispatch/internal/disburse"
	"dispatch/internal/service"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Disburse-Signature"

// WebhookHandler receives asynchronous disbursement notifications from the
// payout processor.
type WebhookHandler struct {
	settlement *service.SettlementService
	secret     string
	log        *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(settlement *service.SettlementService, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{settlement: settlement, secret: secret, log: log}
}

// disbursementEvent is the processor's notification payload.
type disbursementEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payout struct {
			Entity struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				FailureReason string `json:"failure_reason"`
			} `json:"entity"`
		} `json:"payout"`
	} `json:"payload"`
}

// HandleDisbursement handles POST /webhooks/disbursement. The signature is
// checked over the raw body before anything is parsed; a bad signature
// applies nothing. A valid delivery is always acknowledged with 200 so the
// processor stops retrying, even when the payload references an unknown
// disbursement.
func (h *WebhookHandler) HandleDisbursement(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
		return
	}

	if !disburse.VerifySignature(body, c.GetHeader(signatureHeader), h.secret) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
		return
	}

	var event disbursementEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// The sender is authenticated; acknowledge so it stops retrying a
		// payload this build cannot parse.
		h.log.Warn("malformed disbursement payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	entity := event.Payload.Payout.Entity
	if err := h.settlement.HandleDisbursementEvent(c.Request.Context(), entity.ID, entity.Status, entity.FailureReason); err != nil {
		// Acknowledge anyway; reconciliation is retried by the next batch
		// run or webhook redelivery.
		h.log.Error("apply disbursement event",
			zap.String("disbursement_id", entity.ID),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
