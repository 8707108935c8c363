package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Payment is one ledger row: the financial truth for a settled order.
// Created exactly once per gateway payment id, mutated only by refund and
// reconciliation, never deleted.
type Payment struct {
	TransactionID        string        `json:"transaction_id" dynamodbav:"transaction_id"`
	OrderNumber          string        `json:"order_number" dynamodbav:"order_number"`
	CustomerID           string        `json:"customer_id" dynamodbav:"customer_id"`
	VendorID             string        `json:"vendor_id" dynamodbav:"vendor_id"`
	PaymentMethod        PaymentMethod `json:"payment_method" dynamodbav:"payment_method"`
	OrderAmount          float64       `json:"order_amount" dynamodbav:"order_amount"`
	Discount             float64       `json:"discount" dynamodbav:"discount"`
	Tax                  float64       `json:"tax" dynamodbav:"tax"`
	ShippingCharge       float64       `json:"shipping_charge" dynamodbav:"shipping_charge"`
	TotalAmount          float64       `json:"total_amount" dynamodbav:"total_amount"`
	VendorAmount         float64       `json:"vendor_amount" dynamodbav:"vendor_amount"`
	PlatformCommission   float64       `json:"platform_commission" dynamodbav:"platform_commission"`
	CommissionPercentage float64       `json:"commission_percentage" dynamodbav:"commission_percentage"`
	Status               PaymentStatus `json:"status" dynamodbav:"status"`
	RefundAmount         float64       `json:"refund_amount" dynamodbav:"refund_amount"`
	RefundReason         string        `json:"refund_reason,omitempty" dynamodbav:"refund_reason"`
	RefundedAt           *time.Time    `json:"refunded_at,omitempty" dynamodbav:"refunded_at"`
	GatewayOrderID       string        `json:"gateway_order_id" dynamodbav:"gateway_order_id"`
	GatewayPaymentID     string        `json:"gateway_payment_id" dynamodbav:"gateway_payment_id"`
	Reconciled           bool          `json:"reconciled" dynamodbav:"reconciled"`
	ReconciledBy         string        `json:"reconciled_by,omitempty" dynamodbav:"reconciled_by"`
	ReconciledAt         *time.Time    `json:"reconciled_at,omitempty" dynamodbav:"reconciled_at"`
	Version              int64         `json:"version" dynamodbav:"version"`
	CreatedAt            time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}

// Refundable reports whether a refund may be applied to the row. A refund on
// a partially refunded row is a correction that overwrites the stored amount;
// a fully refunded row is terminal.
func (p *Payment) Refundable() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPartiallyRefunded
}
