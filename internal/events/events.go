package events

import (
	"time"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

type OrderCreatedEvent struct {
	EventID     string             `json:"event_id"`
	OrderNumber string             `json:"order_number"`
	CustomerID  string             `json:"customer_id"`
	TotalAmount float64            `json:"total_amount"`
	Items       []domain.OrderItem `json:"items"`
	Status      string             `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
	RequestID   string             `json:"request_id"`
}

type PaymentSettledEvent struct {
	EventID            string    `json:"event_id"`
	TransactionID      string    `json:"transaction_id"`
	OrderNumber        string    `json:"order_number"`
	VendorID           string    `json:"vendor_id"`
	TotalAmount        float64   `json:"total_amount"`
	VendorAmount       float64   `json:"vendor_amount"`
	PlatformCommission float64   `json:"platform_commission"`
	Timestamp          time.Time `json:"timestamp"`
}

type PaymentRefundedEvent struct {
	EventID       string    `json:"event_id"`
	TransactionID string    `json:"transaction_id"`
	OrderNumber   string    `json:"order_number"`
	RefundAmount  float64   `json:"refund_amount"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// StockCompensatedEvent records a stock restore, either a rollback of a
// partially applied order or a cancellation.
type StockCompensatedEvent struct {
	EventID     string    `json:"event_id"`
	OrderNumber string    `json:"order_number"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}
