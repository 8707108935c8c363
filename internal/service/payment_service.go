package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
	"github.com/TEswarreddy/shopez-sub000/internal/events"
)

type PaymentService struct {
	payments    PaymentStore
	orders      OrderStore
	catalog     CatalogStore
	gateway     GatewayClient
	producer    EventPublisher
	defaultRate float64
	logger      *zap.Logger
}

func NewPaymentService(payments PaymentStore, orders OrderStore, catalog CatalogStore, gw GatewayClient, producer EventPublisher, defaultRate float64, logger *zap.Logger) *PaymentService {
	if defaultRate <= 0 {
		defaultRate = domain.DefaultCommissionPercentage
	}
	return &PaymentService{
		payments:    payments,
		orders:      orders,
		catalog:     catalog,
		gateway:     gw,
		producer:    producer,
		defaultRate: defaultRate,
		logger:      logger,
	}
}

type SettleRequest struct {
	OrderNumber      string `json:"order_number"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
	// CommissionOverride replaces the vendor's stored rate for this
	// settlement only. Nil means "use the stored rate".
	CommissionOverride *float64 `json:"commission_percentage,omitempty"`
}

func (r *SettleRequest) validate() error {
	if r.OrderNumber == "" {
		return domain.NewValidationError("order_number", "must not be empty")
	}
	if r.GatewayOrderID == "" {
		return domain.NewValidationError("gateway_order_id", "must not be empty")
	}
	if r.GatewayPaymentID == "" {
		return domain.NewValidationError("gateway_payment_id", "must not be empty")
	}
	if r.Signature == "" {
		return domain.NewValidationError("signature", "must not be empty")
	}
	if r.CommissionOverride != nil && (*r.CommissionOverride < 0 || *r.CommissionOverride > 100) {
		return domain.NewValidationError("commission_percentage", "must be between 0 and 100")
	}
	return nil
}

// Settle verifies the client-supplied gateway signature and creates the
// ledger row for the order. On a signature mismatch the order is marked
// failed and no ledger row is written.
func (s *PaymentService) Settle(ctx context.Context, req SettleRequest) (*domain.Payment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, req.OrderNumber)
	if err != nil {
		return nil, err
	}

	if !s.gateway.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		if err := s.orders.MarkPaymentFailed(ctx, req.OrderNumber); err != nil {
			s.logger.Error("Failed to mark order payment failed",
				zap.String("order_number", req.OrderNumber),
				zap.Error(err))
		}
		s.logger.Warn("Settlement signature mismatch",
			zap.String("order_number", req.OrderNumber),
			zap.String("gateway_payment_id", req.GatewayPaymentID))
		return nil, domain.ErrSignatureMismatch
	}

	return s.settle(ctx, order, req.GatewayOrderID, req.GatewayPaymentID, req.CommissionOverride)
}

// SettleFromWebhook settles on a charge-captured webhook. The webhook body
// was already authenticated with the webhook secret, so no client signature
// is required here.
func (s *PaymentService) SettleFromWebhook(ctx context.Context, orderNumber, gatewayOrderID, gatewayPaymentID string) (*domain.Payment, error) {
	order, err := s.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, order, gatewayOrderID, gatewayPaymentID, nil)
}

// settle creates the ledger row with the commission split and flips the
// order to confirmed/paid. Settling the same gateway payment twice returns
// the existing row and re-applies nothing: the uniqueness constraint on the
// gateway payment id makes the duplicate a no-op success.
func (s *PaymentService) settle(ctx context.Context, order *domain.Order, gatewayOrderID, gatewayPaymentID string, override *float64) (*domain.Payment, error) {
	// A charge opened for this order pins its gateway order id. The signature
	// only binds the gateway pair, so a valid signature for some other charge
	// must not settle this order.
	if order.GatewayOrderID != "" && order.GatewayOrderID != gatewayOrderID {
		s.logger.Warn("Settlement gateway order mismatch",
			zap.String("order_number", order.OrderNumber),
			zap.String("expected", order.GatewayOrderID),
			zap.String("got", gatewayOrderID))
		return nil, domain.NewValidationError("gateway_order_id", "does not match the charge opened for this order")
	}

	rate := s.commissionRate(ctx, order.VendorID(), override)
	vendorAmount, platformCommission := domain.SplitAmount(order.TotalAmount, rate)

	now := time.Now().UTC()
	payment := &domain.Payment{
		TransactionID:        newTransactionID(),
		OrderNumber:          order.OrderNumber,
		CustomerID:           order.CustomerID,
		VendorID:             order.VendorID(),
		PaymentMethod:        order.PaymentMethod,
		OrderAmount:          order.TotalAmount,
		TotalAmount:          order.TotalAmount,
		VendorAmount:         vendorAmount,
		PlatformCommission:   platformCommission,
		CommissionPercentage: rate,
		Status:               domain.PaymentStatusCompleted,
		GatewayOrderID:       gatewayOrderID,
		GatewayPaymentID:     gatewayPaymentID,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	stored, err := s.payments.InsertSettled(ctx, payment)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateSettlement) {
			// The ledger row exists but the order flip may have failed on the
			// first attempt; re-apply it so a redelivery heals the order
			// instead of reporting success over a still-pending row.
			if order.PaymentStatus != domain.PaymentStateCompleted {
				if err := s.orders.SetPaymentOutcome(ctx, order.OrderNumber, domain.PaymentStateCompleted, domain.OrderStatusConfirmed); err != nil {
					s.logger.Error("Failed to re-apply order flip on duplicate settlement",
						zap.String("order_number", order.OrderNumber),
						zap.String("transaction_id", stored.TransactionID),
						zap.Error(err))
					return nil, err
				}
			}
			s.logger.Info("Duplicate settlement ignored",
				zap.String("order_number", order.OrderNumber),
				zap.String("gateway_payment_id", gatewayPaymentID),
				zap.String("transaction_id", stored.TransactionID))
			return stored, nil
		}
		return nil, err
	}

	if err := s.orders.SetPaymentOutcome(ctx, order.OrderNumber, domain.PaymentStateCompleted, domain.OrderStatusConfirmed); err != nil {
		s.logger.Error("Ledger row created but order update failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("transaction_id", stored.TransactionID),
			zap.Error(err))
		return nil, err
	}

	event := events.PaymentSettledEvent{
		EventID:            uuid.New().String(),
		TransactionID:      stored.TransactionID,
		OrderNumber:        stored.OrderNumber,
		VendorID:           stored.VendorID,
		TotalAmount:        stored.TotalAmount,
		VendorAmount:       stored.VendorAmount,
		PlatformCommission: stored.PlatformCommission,
		Timestamp:          now,
	}
	if err := s.producer.PublishPaymentSettled(event); err != nil {
		s.logger.Error("Failed to publish settlement event",
			zap.String("transaction_id", stored.TransactionID),
			zap.Error(err))
	}

	s.logger.Info("Payment settled",
		zap.String("transaction_id", stored.TransactionID),
		zap.String("order_number", stored.OrderNumber),
		zap.Float64("total_amount", stored.TotalAmount),
		zap.Float64("platform_commission", stored.PlatformCommission),
		zap.Float64("vendor_amount", stored.VendorAmount))
	return stored, nil
}

// commissionRate resolves the percentage for a settlement: explicit override
// first, then the vendor's stored rate, then the platform default.
func (s *PaymentService) commissionRate(ctx context.Context, vendorID string, override *float64) float64 {
	if override != nil {
		return *override
	}
	rate, err := s.catalog.GetVendorRate(ctx, vendorID)
	if err != nil {
		if !errors.Is(err, domain.ErrVendorNotFound) {
			s.logger.Warn("Vendor rate lookup failed, using default",
				zap.String("vendor_id", vendorID),
				zap.Error(err))
		}
		return s.defaultRate
	}
	return rate
}

// MarkFailed records a gateway charge failure on an order that has no ledger
// row yet. Already-settled orders are untouched.
func (s *PaymentService) MarkFailed(ctx context.Context, orderNumber, reason string) error {
	if err := s.orders.MarkPaymentFailed(ctx, orderNumber); err != nil {
		return err
	}
	s.logger.Info("Order payment marked failed",
		zap.String("order_number", orderNumber),
		zap.String("reason", reason))
	return nil
}

type RefundRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
}

// Refund issues a gateway refund and stamps it on the ledger row. The amount
// is stored, never accumulated: refunding a partially refunded payment is a
// correction that overwrites the previous amount, and a fully refunded row
// rejects further refunds.
func (s *PaymentService) Refund(ctx context.Context, req RefundRequest, actor domain.Actor) (*domain.Payment, error) {
	if !domain.CanPerform(actor, domain.ActionRefund, nil) {
		return nil, domain.ErrUnauthorized
	}
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}

	payment, err := s.payments.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if req.Amount > payment.TotalAmount {
		return nil, domain.ErrRefundExceedsTotal
	}
	if !payment.Refundable() {
		return nil, domain.ErrInvalidTransition
	}

	if _, err := s.gateway.Refund(ctx, payment.GatewayPaymentID, domain.MinorUnits(req.Amount)); err != nil {
		return nil, fmt.Errorf("gateway refund failed for %s: %w", req.TransactionID, err)
	}

	return s.applyRefund(ctx, payment, req.Amount, req.Reason)
}

// RecordExternalRefund applies a refund that the gateway initiated itself
// (refund-created webhook). No outbound gateway call is made.
func (s *PaymentService) RecordExternalRefund(ctx context.Context, gatewayPaymentID string, amountMinorUnits int64, reason string) (*domain.Payment, error) {
	payment, err := s.payments.GetByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return s.applyRefund(ctx, payment, float64(amountMinorUnits)/100, reason)
}

func (s *PaymentService) applyRefund(ctx context.Context, payment *domain.Payment, amount float64, reason string) (*domain.Payment, error) {
	if amount > payment.TotalAmount {
		return nil, domain.ErrRefundExceedsTotal
	}
	if !payment.Refundable() {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	payment.RefundAmount = domain.Round2(amount)
	payment.RefundReason = reason
	payment.RefundedAt = &now
	if payment.RefundAmount == payment.TotalAmount {
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.Status = domain.PaymentStatusPartiallyRefunded
	}
	payment.Version++
	payment.UpdatedAt = now

	if err := s.payments.ApplyRefund(ctx, payment); err != nil {
		return nil, err
	}

	// A full refund reflects back onto the order row; the ledger row stays
	// the financial source of truth, so a failed write-back is logged, not
	// fatal.
	if payment.Status == domain.PaymentStatusRefunded {
		if err := s.orders.SetPaymentState(ctx, payment.OrderNumber, domain.PaymentStateRefunded); err != nil {
			s.logger.Error("Failed to mark order refunded",
				zap.String("order_number", payment.OrderNumber),
				zap.Error(err))
		}
	}

	event := events.PaymentRefundedEvent{
		EventID:       uuid.New().String(),
		TransactionID: payment.TransactionID,
		OrderNumber:   payment.OrderNumber,
		RefundAmount:  payment.RefundAmount,
		Status:        string(payment.Status),
		Timestamp:     now,
	}
	if err := s.producer.PublishPaymentRefunded(event); err != nil {
		s.logger.Error("Failed to publish refund event",
			zap.String("transaction_id", payment.TransactionID),
			zap.Error(err))
	}

	s.logger.Info("Payment refunded",
		zap.String("transaction_id", payment.TransactionID),
		zap.Float64("refund_amount", payment.RefundAmount),
		zap.String("status", string(payment.Status)))
	return payment, nil
}

// GetPayment returns one ledger row; admin only.
func (s *PaymentService) GetPayment(ctx context.Context, transactionID string, actor domain.Actor) (*domain.Payment, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domain.ErrUnauthorized
	}
	return s.payments.GetByTransactionID(ctx, transactionID)
}

// MarkReconciled bulk-stamps the reconciliation flag. Bookkeeping only; the
// payment status is untouched.
func (s *PaymentService) MarkReconciled(ctx context.Context, transactionIDs []string, actor domain.Actor) error {
	if !domain.CanPerform(actor, domain.ActionReconcile, nil) {
		return domain.ErrUnauthorized
	}
	if len(transactionIDs) == 0 {
		return domain.NewValidationError("transaction_ids", "must not be empty")
	}
	if err := s.payments.MarkReconciled(ctx, transactionIDs, actor.ID, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("Payments reconciled",
		zap.Int("count", len(transactionIDs)),
		zap.String("actor_id", actor.ID))
	return nil
}
