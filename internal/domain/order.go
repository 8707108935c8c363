package domain

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusShipped    ItemStatus = "shipped"
	ItemStatusDelivered  ItemStatus = "delivered"
	ItemStatusCancelled  ItemStatus = "cancelled"
)

type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
	PaymentStateRefunded  PaymentState = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodGateway        PaymentMethod = "gateway"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodGateway, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// OrderItem is a snapshot of one product line at the moment the order was
// placed. Price and vendor never change afterwards, whatever the catalog does.
type OrderItem struct {
	ProductID string     `json:"product_id" dynamodbav:"product_id"`
	VendorID  string     `json:"vendor_id" dynamodbav:"vendor_id"`
	Quantity  int        `json:"quantity" dynamodbav:"quantity"`
	Price     float64    `json:"price" dynamodbav:"price"`
	Status    ItemStatus `json:"status" dynamodbav:"status"`
}

type Order struct {
	OrderNumber     string        `json:"order_number" dynamodbav:"order_number"`
	CustomerID      string        `json:"customer_id" dynamodbav:"customer_id"`
	Items           []OrderItem   `json:"items" dynamodbav:"items"`
	TotalAmount     float64       `json:"total_amount" dynamodbav:"total_amount"`
	ShippingAddress string        `json:"shipping_address" dynamodbav:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method" dynamodbav:"payment_method"`
	PaymentStatus   PaymentState  `json:"payment_status" dynamodbav:"payment_status"`
	Status          OrderStatus   `json:"status" dynamodbav:"status"`
	GatewayOrderID  string        `json:"gateway_order_id,omitempty" dynamodbav:"gateway_order_id"`
	CreatedAt       time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}

// VendorID returns the vendor the order settles against. Carts are
// single-vendor, so the first line item carries it.
func (o *Order) VendorID() string {
	if len(o.Items) == 0 {
		return ""
	}
	return o.Items[0].VendorID
}

func (o *Order) HasVendor(vendorID string) bool {
	for _, it := range o.Items {
		if it.VendorID == vendorID {
			return true
		}
	}
	return false
}

// Cancellable reports whether the order is still early enough in its
// lifecycle to be cancelled as a whole.
func (o *Order) Cancellable() bool {
	if o.PaymentStatus == PaymentStateCompleted {
		return false
	}
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// itemStageRank orders fulfillment stages for the status rollup. Cancelled
// items are excluded from the rollup entirely.
var itemStageRank = map[ItemStatus]int{
	ItemStatusPending:    0,
	ItemStatusProcessing: 1,
	ItemStatusShipped:    2,
	ItemStatusDelivered:  3,
}

var itemStageOrderStatus = map[int]OrderStatus{
	1: OrderStatusProcessing,
	2: OrderStatusShipped,
	3: OrderStatusDelivered,
}

var itemTransitions = map[ItemStatus]ItemStatus{
	ItemStatusPending:    ItemStatusProcessing,
	ItemStatusProcessing: ItemStatusShipped,
	ItemStatusShipped:    ItemStatusDelivered,
}

// CanTransitionItem checks the per-item fulfillment state machine:
// pending -> processing -> shipped -> delivered, with cancellation allowed
// from any non-terminal state.
func CanTransitionItem(from, to ItemStatus) bool {
	if from == ItemStatusDelivered || from == ItemStatusCancelled {
		return false
	}
	if to == ItemStatusCancelled {
		return true
	}
	return itemTransitions[from] == to
}

// RollupStatus derives the order status from its item statuses after an item
// update. The order advances with its slowest non-cancelled item.
func RollupStatus(o *Order) OrderStatus {
	minRank := -1
	live := 0
	for _, it := range o.Items {
		if it.Status == ItemStatusCancelled {
			continue
		}
		live++
		r := itemStageRank[it.Status]
		if minRank == -1 || r < minRank {
			minRank = r
		}
	}
	if live == 0 {
		return OrderStatusCancelled
	}
	if s, ok := itemStageOrderStatus[minRank]; ok {
		return s
	}
	// Slowest item is still pending: keep whatever stage the order is in.
	return o.Status
}
