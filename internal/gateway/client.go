// Package gateway adapts the external payment gateway: charge intents,
// signature verification and refunds. Only the contract lives here; the
// gateway owns the actual charge lifecycle.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type chargeRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type chargeResponse struct {
	ID string `json:"id"`
}

// CreateRemoteCharge opens a charge intent at the gateway and returns its
// order id. Amount is in minor units.
func (c *Client) CreateRemoteCharge(ctx context.Context, amountMinorUnits int64, currency, receiptRef string) (string, error) {
	body, err := json.Marshal(chargeRequest{
		Amount:   amountMinorUnits,
		Currency: currency,
		Receipt:  receiptRef,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal charge request: %w", err)
	}

	resp, err := c.post(ctx, c.cfg.BaseURL+"/v1/orders", body)
	if err != nil {
		return "", err
	}

	var out chargeResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", fmt.Errorf("failed to decode charge response: %w", err)
	}
	c.logger.Info("Remote charge created",
		zap.String("gateway_order_id", out.ID),
		zap.String("receipt", receiptRef),
		zap.Int64("amount_minor", amountMinorUnits))
	return out.ID, nil
}

// VerifySignature checks the client-supplied settlement signature:
// HMAC-SHA256 over "<gatewayOrderId>|<gatewayPaymentId>" with the key secret.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := Sign(c.cfg.KeySecret, gatewayOrderID+"|"+gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhook checks the header signature against HMAC-SHA256 of the raw
// request body with the webhook secret.
func (c *Client) VerifyWebhook(rawBody []byte, signature string) bool {
	expected := Sign(c.cfg.WebhookSecret, string(rawBody))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type refundRequest struct {
	Amount int64 `json:"amount,omitempty"`
}

// RefundRecord is the gateway's acknowledgement of a refund.
type RefundRecord struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

// Refund issues a refund at the gateway. A zero amount refunds the full
// charge, per the gateway API.
func (c *Client) Refund(ctx context.Context, gatewayPaymentID string, amountMinorUnits int64) (*RefundRecord, error) {
	body, err := json.Marshal(refundRequest{Amount: amountMinorUnits})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refund request: %w", err)
	}

	resp, err := c.post(ctx, fmt.Sprintf("%s/v1/payments/%s/refund", c.cfg.BaseURL, gatewayPaymentID), body)
	if err != nil {
		return nil, err
	}

	var record RefundRecord
	if err := json.Unmarshal(resp, &record); err != nil {
		return nil, fmt.Errorf("failed to decode refund response: %w", err)
	}
	c.logger.Info("Gateway refund issued",
		zap.String("gateway_payment_id", gatewayPaymentID),
		zap.String("refund_id", record.ID))
	return &record, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// Sign computes the hex HMAC-SHA256 of payload with secret. Exposed so tests
// and webhook callers can produce valid signatures.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
