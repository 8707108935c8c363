package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
	"github.com/TEswarreddy/shopez-sub000/internal/events"
	"github.com/TEswarreddy/shopez-sub000/internal/gateway"
)

// CatalogStore is the external catalog contract: reads plus the atomic
// conditional stock decrement.
type CatalogStore interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	GetVendorRate(ctx context.Context, vendorID string) (float64, error)
	DecrementStock(ctx context.Context, productID string, quantity int) error
	RestoreStock(ctx context.Context, productID string, quantity int) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	UpdateItemStatus(ctx context.Context, orderNumber string, index int, from, to domain.ItemStatus, rollup domain.OrderStatus) error
	SetPaymentOutcome(ctx context.Context, orderNumber string, payState domain.PaymentState, status domain.OrderStatus) error
	SetPaymentState(ctx context.Context, orderNumber string, state domain.PaymentState) error
	MarkPaymentFailed(ctx context.Context, orderNumber string) error
	SetGatewayOrder(ctx context.Context, orderNumber, gatewayOrderID string) error
	ReplaceOrder(ctx context.Context, order *domain.Order, prevStatus domain.OrderStatus) error
}

type PaymentStore interface {
	InsertSettled(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	ApplyRefund(ctx context.Context, p *domain.Payment) error
	MarkReconciled(ctx context.Context, transactionIDs []string, actorID string, at time.Time) error
	ListByFilter(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error)
}

type GatewayClient interface {
	CreateRemoteCharge(ctx context.Context, amountMinorUnits int64, currency, receiptRef string) (string, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	Refund(ctx context.Context, gatewayPaymentID string, amountMinorUnits int64) (*gateway.RefundRecord, error)
}

type EventPublisher interface {
	PublishOrderCreated(event events.OrderCreatedEvent) error
	PublishPaymentSettled(event events.PaymentSettledEvent) error
	PublishPaymentRefunded(event events.PaymentRefundedEvent) error
	PublishStockCompensated(event events.StockCompensatedEvent) error
}

// ReportCache fronts report queries; misses are recomputed from storage.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

func newOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

func newTransactionID() string {
	return "TXN-" + ulid.Make().String()
}
