package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
	"github.com/TEswarreddy/shopez-sub000/internal/events"
)

type OrderService struct {
	orders   OrderStore
	catalog  CatalogStore
	gateway  GatewayClient
	producer EventPublisher
	currency string
	logger   *zap.Logger
}

func NewOrderService(orders OrderStore, catalog CatalogStore, gw GatewayClient, producer EventPublisher, currency string, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		gateway:  gw,
		producer: producer,
		currency: currency,
		logger:   logger,
	}
}

type CreateOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	CustomerID      string               `json:"customer_id"`
	Items           []CreateOrderItem    `json:"items"`
	ShippingAddress string               `json:"shipping_address"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
}

func (r *CreateOrderRequest) validate() error {
	if r.CustomerID == "" {
		return domain.NewValidationError("customer_id", "must not be empty")
	}
	if len(r.Items) == 0 {
		return domain.NewValidationError("items", "must contain at least one item")
	}
	for i, it := range r.Items {
		if it.ProductID == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "must not be empty")
		}
		if it.Quantity <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}
	if r.ShippingAddress == "" {
		return domain.NewValidationError("shipping_address", "must not be empty")
	}
	if !r.PaymentMethod.Valid() {
		return domain.NewValidationError("payment_method", "unknown method")
	}
	return nil
}

// CreateOrder builds an order from cart line items. All items are validated
// against the catalog before any stock is touched; only then are the
// conditional decrements applied, and a mid-order failure rolls back every
// decrement already made for this order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest, requestID string) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	// Validation pass: snapshot price and vendor, accumulate the total.
	items := make([]domain.OrderItem, 0, len(req.Items))
	var totalAmount float64
	for _, it := range req.Items {
		product, err := s.catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, err)
		}
		if product.Stock < it.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: product.ID,
				Requested: it.Quantity,
				Available: product.Stock,
			}
		}
		if len(items) > 0 && product.VendorID != items[0].VendorID {
			return nil, domain.NewValidationError("items", "all items must belong to the same vendor")
		}

		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			VendorID:  product.VendorID,
			Quantity:  it.Quantity,
			Price:     product.Price,
			Status:    domain.ItemStatusPending,
		})
		totalAmount += product.Price * float64(it.Quantity)
	}

	order := &domain.Order{
		OrderNumber:     newOrderNumber(),
		CustomerID:      req.CustomerID,
		Items:           items,
		TotalAmount:     domain.Round2(totalAmount),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   domain.PaymentStatePending,
		Status:          domain.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	// Mutation pass: conditional decrements, rolled back as a unit on any
	// failure so no partial decrement is ever observable.
	for i, it := range items {
		if err := s.catalog.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.rollbackDecrements(ctx, order.OrderNumber, items[:i], "stock decrement failed")
			return nil, fmt.Errorf("product %s: %w", it.ProductID, err)
		}
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.rollbackDecrements(ctx, order.OrderNumber, items, "order persist failed")
		s.logger.Error("Failed to save order",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	event := events.OrderCreatedEvent{
		EventID:     uuid.New().String(),
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       order.Items,
		Status:      string(order.Status),
		Timestamp:   time.Now().UTC(),
		RequestID:   requestID,
	}
	if err := s.producer.PublishOrderCreated(event); err != nil {
		// Event delivery is eventually consistent; the order itself stands.
		s.logger.Error("Failed to publish order created event",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}

	s.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID),
		zap.Float64("total_amount", order.TotalAmount))
	return order, nil
}

func (s *OrderService) rollbackDecrements(ctx context.Context, orderNumber string, applied []domain.OrderItem, reason string) {
	for _, it := range applied {
		if err := s.catalog.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Error("Failed to restore stock during rollback",
				zap.String("order_number", orderNumber),
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err))
			continue
		}
		s.publishCompensation(orderNumber, it.ProductID, it.Quantity, reason)
	}
}

func (s *OrderService) publishCompensation(orderNumber, productID string, quantity int, reason string) {
	event := events.StockCompensatedEvent{
		EventID:     uuid.New().String(),
		OrderNumber: orderNumber,
		ProductID:   productID,
		Quantity:    quantity,
		Reason:      reason,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.producer.PublishStockCompensated(event); err != nil {
		s.logger.Error("Failed to publish stock compensation event",
			zap.String("order_number", orderNumber),
			zap.String("product_id", productID),
			zap.Error(err))
	}
}

// OpenCharge creates the remote charge intent for a gateway-method order and
// stores the gateway order id. Calling it again returns the existing intent.
func (s *OrderService) OpenCharge(ctx context.Context, orderNumber string, actor domain.Actor) (string, error) {
	order, err := s.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		return "", err
	}
	if !domain.CanPerform(actor, domain.ActionOpenCharge, order) {
		return "", domain.ErrUnauthorized
	}
	if order.PaymentMethod != domain.PaymentMethodGateway {
		return "", domain.NewValidationError("payment_method", "order is not paid through the gateway")
	}
	if order.PaymentStatus != domain.PaymentStatePending {
		return "", domain.ErrInvalidTransition
	}
	if order.GatewayOrderID != "" {
		return order.GatewayOrderID, nil
	}

	gatewayOrderID, err := s.gateway.CreateRemoteCharge(ctx, domain.MinorUnits(order.TotalAmount), s.currency, order.OrderNumber)
	if err != nil {
		return "", fmt.Errorf("failed to open charge for order %s: %w", orderNumber, err)
	}
	if err := s.orders.SetGatewayOrder(ctx, orderNumber, gatewayOrderID); err != nil {
		return "", err
	}
	return gatewayOrderID, nil
}

// GetOrder returns the order when the actor owns it, supplies one of its
// items, or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber string, actor domain.Actor) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !domain.CanPerform(actor, domain.ActionViewOrder, order) {
		return nil, domain.ErrUnauthorized
	}
	return order, nil
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string, actor domain.Actor) ([]domain.Order, error) {
	if actor.Role != domain.RoleAdmin && actor.ID != customerID {
		return nil, domain.ErrUnauthorized
	}
	return s.orders.ListOrdersByCustomer(ctx, customerID)
}

// UpdateItemStatus advances one line item along its fulfillment lifecycle,
// authorized for that item's vendor or an admin. Cancelling an item restores
// its stock.
func (s *OrderService) UpdateItemStatus(ctx context.Context, orderNumber string, index int, newStatus domain.ItemStatus, actor domain.Actor) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(order.Items) {
		return nil, domain.NewValidationError("item_index", "out of range")
	}
	if !domain.CanPerform(actor, domain.ActionUpdateItemStatus, domain.ItemRef{Order: order, Index: index}) {
		return nil, domain.ErrUnauthorized
	}

	from := order.Items[index].Status
	if !domain.CanTransitionItem(from, newStatus) {
		return nil, domain.ErrInvalidTransition
	}

	order.Items[index].Status = newStatus
	rollup := domain.RollupStatus(order)
	if err := s.orders.UpdateItemStatus(ctx, orderNumber, index, from, newStatus, rollup); err != nil {
		return nil, err
	}
	order.Status = rollup

	if newStatus == domain.ItemStatusCancelled {
		it := order.Items[index]
		if err := s.catalog.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Error("Failed to restore stock for cancelled item",
				zap.String("order_number", orderNumber),
				zap.String("product_id", it.ProductID),
				zap.Error(err))
		} else {
			s.publishCompensation(orderNumber, it.ProductID, it.Quantity, "item cancelled")
		}
	}

	s.logger.Info("Item status updated",
		zap.String("order_number", orderNumber),
		zap.Int("item_index", index),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)))
	return order, nil
}

// CancelOrder cancels a whole order that has not progressed past
// confirmation and whose payment has not completed, restoring all remaining
// stock.
func (s *OrderService) CancelOrder(ctx context.Context, orderNumber string, actor domain.Actor) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !domain.CanPerform(actor, domain.ActionCancelOrder, order) {
		return nil, domain.ErrUnauthorized
	}
	if !order.Cancellable() {
		return nil, domain.ErrInvalidTransition
	}

	prevStatus := order.Status
	var restored []domain.OrderItem
	for i := range order.Items {
		if order.Items[i].Status == domain.ItemStatusCancelled {
			continue
		}
		order.Items[i].Status = domain.ItemStatusCancelled
		restored = append(restored, order.Items[i])
	}
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()

	if err := s.orders.ReplaceOrder(ctx, order, prevStatus); err != nil {
		return nil, err
	}

	for _, it := range restored {
		if err := s.catalog.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Error("Failed to restore stock on cancellation",
				zap.String("order_number", orderNumber),
				zap.String("product_id", it.ProductID),
				zap.Error(err))
			continue
		}
		s.publishCompensation(orderNumber, it.ProductID, it.Quantity, "order cancelled")
	}

	s.logger.Info("Order cancelled",
		zap.String("order_number", orderNumber),
		zap.String("customer_id", order.CustomerID))
	return order, nil
}
