package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/service"
)

// WebhookVerifier authenticates an inbound gateway webhook body.
type WebhookVerifier interface {
	VerifyWebhook(rawBody []byte, signature string) bool
}

type WebhookHandler struct {
	paymentService *service.PaymentService
	verifier       WebhookVerifier
	logger         *zap.Logger
}

func NewWebhookHandler(paymentService *service.PaymentService, verifier WebhookVerifier, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		verifier:       verifier,
		logger:         logger,
	}
}

type webhookEnvelope struct {
	Event   string         `json:"event"`
	Payload webhookPayload `json:"payload"`
}

type webhookPayload struct {
	OrderNumber      string `json:"order_number"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	AmountMinorUnits int64  `json:"amount"`
	Reason           string `json:"reason"`
}

// Handle processes gateway webhook deliveries. The gateway may redeliver any
// event; every branch below is idempotent, so a retry is always safe to
// acknowledge.
func (h *WebhookHandler) Handle(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if !h.verifier.VerifyWebhook(rawBody, signature) {
		h.logger.Warn("Webhook signature rejected",
			zap.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	ctx := c.Request.Context()
	switch envelope.Event {
	case "charge.captured":
		_, err = h.paymentService.SettleFromWebhook(ctx, envelope.Payload.OrderNumber, envelope.Payload.GatewayOrderID, envelope.Payload.GatewayPaymentID)
	case "charge.failed":
		err = h.paymentService.MarkFailed(ctx, envelope.Payload.OrderNumber, envelope.Payload.Reason)
	case "refund.created":
		_, err = h.paymentService.RecordExternalRefund(ctx, envelope.Payload.GatewayPaymentID, envelope.Payload.AmountMinorUnits, envelope.Payload.Reason)
	default:
		h.logger.Info("Ignoring webhook event", zap.String("event", envelope.Event))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("event", envelope.Event),
			zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
