package disburse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"dispatch/internal/config"
	"dispatch/internal/domain"
)

// Client talks to a RazorpayX-style payout API over HTTP with basic auth.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	accountNumber string
	httpClient    *http.Client
	log           *zap.Logger
}

// NewClient creates a new disbursement client.
func NewClient(cfg config.DisburseConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		accountNumber: cfg.AccountNumber,
		httpClient:    &http.Client{Timeout: timeout},
		log:           log,
	}
}

type contactResponse struct {
	ID string `json:"id"`
}

type fundAccountResponse struct {
	ID string `json:"id"`
}

type payoutResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// EnsurePayee creates or reuses the external contact for a driver. The
// stored payee id short-circuits the call on later settlement runs.
func (c *Client) EnsurePayee(ctx context.Context, inst domain.PayoutInstrument) (string, error) {
	if inst.PayeeID != "" {
		return inst.PayeeID, nil
	}

	body := map[string]any{
		"name":         inst.Name,
		"contact":      inst.Contact,
		"type":         "vendor",
		"reference_id": inst.DriverID,
	}

	var resp contactResponse
	if err := c.post(ctx, "/contacts", body, &resp); err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	return resp.ID, nil
}

// EnsureFundAccount creates the fund account binding the payee to the
// chosen instrument, or reuses the stored reference when it was created
// for the same kind.
func (c *Client) EnsureFundAccount(ctx context.Context, payeeID string, inst domain.PayoutInstrument, kind InstrumentKind) (string, error) {
	if inst.FundAccountID != "" && inst.FundAccountKind == string(kind) {
		return inst.FundAccountID, nil
	}

	body := map[string]any{
		"contact_id":   payeeID,
		"account_type": string(kind),
	}

	switch kind {
	case KindBank:
		body["bank_account"] = map[string]any{
			"name":           inst.Name,
			"account_number": inst.BankAccount,
			"ifsc":           inst.BankIFSC,
		}
	case KindVPA:
		body["vpa"] = map[string]any{
			"address": inst.VPA,
		}
	}

	var resp fundAccountResponse
	if err := c.post(ctx, "/fund_accounts", body, &resp); err != nil {
		return "", fmt.Errorf("create fund account: %w", err)
	}
	return resp.ID, nil
}

// Submit sends the payout instruction against an established fund account.
func (c *Client) Submit(ctx context.Context, fundAccountID string, kind InstrumentKind, payout Payout) (string, error) {
	mode := "IMPS"
	if kind == KindVPA {
		mode = "UPI"
	}

	currency := payout.Currency
	if currency == "" {
		currency = "INR"
	}

	body := map[string]any{
		"account_number":  c.accountNumber,
		"fund_account_id": fundAccountID,
		// The API takes amounts in the smallest currency unit.
		"amount":       int64(math.Round(payout.Amount * 100)),
		"currency":     currency,
		"mode":         mode,
		"purpose":      "payout",
		"reference_id": payout.Reference,
		"narration":    payout.Note,
	}

	var resp payoutResponse
	if err := c.post(ctx, "/payouts", body, &resp); err != nil {
		return "", fmt.Errorf("submit payout: %w", err)
	}

	c.log.Info("payout submitted",
		zap.String("fund_account_id", fundAccountID),
		zap.String("disbursement_id", resp.ID),
		zap.String("reference", payout.Reference),
		zap.String("mode", mode))
	return resp.ID, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("processor returned %s: %s", resp.Status, truncate(data, 200))
	}

	return json.Unmarshal(data, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ Processor = (*Client)(nil)
