package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/service"
	"github.com/TEswarreddy/shopez-sub000/pkg/middleware"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

func (h *PaymentHandler) Settle(c *gin.Context) {
	var req service.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	payment, err := h.paymentService.Settle(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Settlement failed",
			zap.String("order_number", req.OrderNumber),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("transaction_id"), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type refundBody struct {
	Amount float64 `json:"amount" binding:"required"`
	Reason string  `json:"reason"`
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	var body refundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	payment, err := h.paymentService.Refund(c.Request.Context(), service.RefundRequest{
		TransactionID: c.Param("transaction_id"),
		Amount:        body.Amount,
		Reason:        body.Reason,
	}, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

type reconcileBody struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required"`
}

func (h *PaymentHandler) Reconcile(c *gin.Context) {
	var body reconcileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	if err := h.paymentService.MarkReconciled(c.Request.Context(), body.TransactionIDs, middleware.ActorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciled": len(body.TransactionIDs)})
}
