package service

import (
	"context"
	"sync"
	"time"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
	"github.com/TEswarreddy/shopez-sub000/internal/events"
	"github.com/TEswarreddy/shopez-sub000/internal/gateway"
)

type fakeCatalog struct {
	mu               sync.Mutex
	products         map[string]*domain.Product
	vendorRates      map[string]float64
	failDecrementFor string
	restored         map[string]int
}

func newFakeCatalog(products ...*domain.Product) *fakeCatalog {
	c := &fakeCatalog{
		products:    make(map[string]*domain.Product),
		vendorRates: make(map[string]float64),
		restored:    make(map[string]int),
	}
	for _, p := range products {
		cp := *p
		c.products[p.ID] = &cp
	}
	return c
}

func (c *fakeCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) GetVendorRate(_ context.Context, vendorID string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rate, ok := c.vendorRates[vendorID]
	if !ok {
		return 0, domain.ErrVendorNotFound
	}
	return rate, nil
}

func (c *fakeCatalog) DecrementStock(_ context.Context, productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if productID == c.failDecrementFor || p.Stock < quantity {
		return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: -1}
	}
	p.Stock -= quantity
	return nil
}

func (c *fakeCatalog) RestoreStock(_ context.Context, productID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += quantity
	c.restored[productID] += quantity
	return nil
}

func (c *fakeCatalog) stock(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[productID].Stock
}

type fakeOrders struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	failCreate bool
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func (s *fakeOrders) put(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderNumber] = cloneOrder(o)
}

func (s *fakeOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	if s.failCreate {
		return context.DeadlineExceeded
	}
	s.put(order)
	return nil
}

func (s *fakeOrders) GetOrder(_ context.Context, orderNumber string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *fakeOrders) ListOrdersByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (s *fakeOrders) UpdateItemStatus(_ context.Context, orderNumber string, index int, from, to domain.ItemStatus, rollup domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Items[index].Status != from {
		return domain.ErrInvalidTransition
	}
	o.Items[index].Status = to
	o.Status = rollup
	return nil
}

func (s *fakeOrders) SetPaymentOutcome(_ context.Context, orderNumber string, payState domain.PaymentState, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.PaymentStatus = payState
	o.Status = status
	return nil
}

func (s *fakeOrders) SetPaymentState(_ context.Context, orderNumber string, state domain.PaymentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.PaymentStatus = state
	return nil
}

func (s *fakeOrders) MarkPaymentFailed(_ context.Context, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.PaymentStatus == domain.PaymentStatePending {
		o.PaymentStatus = domain.PaymentStateFailed
	}
	return nil
}

func (s *fakeOrders) SetGatewayOrder(_ context.Context, orderNumber, gatewayOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.GatewayOrderID = gatewayOrderID
	return nil
}

func (s *fakeOrders) ReplaceOrder(_ context.Context, order *domain.Order, prevStatus domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[order.OrderNumber]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != prevStatus {
		return domain.ErrInvalidTransition
	}
	s.orders[order.OrderNumber] = cloneOrder(order)
	return nil
}

type fakePayments struct {
	mu        sync.Mutex
	byGateway map[string]*domain.Payment
}

func newFakePayments(seed ...*domain.Payment) *fakePayments {
	s := &fakePayments{byGateway: make(map[string]*domain.Payment)}
	for _, p := range seed {
		cp := *p
		s.byGateway[p.GatewayPaymentID] = &cp
	}
	return s
}

func clonePayment(p *domain.Payment) *domain.Payment {
	cp := *p
	return &cp
}

func (s *fakePayments) InsertSettled(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byGateway[p.GatewayPaymentID]; ok {
		return clonePayment(existing), domain.ErrDuplicateSettlement
	}
	s.byGateway[p.GatewayPaymentID] = clonePayment(p)
	return clonePayment(p), nil
}

func (s *fakePayments) GetByGatewayPaymentID(_ context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byGateway[gatewayPaymentID]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (s *fakePayments) GetByTransactionID(_ context.Context, transactionID string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byGateway {
		if p.TransactionID == transactionID {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (s *fakePayments) ApplyRefund(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byGateway[p.GatewayPaymentID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if stored.Version != p.Version-1 {
		return domain.ErrVersionConflict
	}
	s.byGateway[p.GatewayPaymentID] = clonePayment(p)
	return nil
}

func (s *fakePayments) MarkReconciled(_ context.Context, transactionIDs []string, actorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txnID := range transactionIDs {
		found := false
		for _, p := range s.byGateway {
			if p.TransactionID == txnID {
				p.Reconciled = true
				p.ReconciledBy = actorID
				t := at
				p.ReconciledAt = &t
				p.Version++
				found = true
				break
			}
		}
		if !found {
			return domain.ErrPaymentNotFound
		}
	}
	return nil
}

func (s *fakePayments) ListByFilter(_ context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, p := range s.byGateway {
		if f.Matches(p) {
			out = append(out, *clonePayment(p))
		}
	}
	return out, nil
}

func (s *fakePayments) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byGateway)
}

type fakeGateway struct {
	mu            sync.Mutex
	chargeID      string
	chargeErr     error
	verifyResult  bool
	refundErr     error
	refundedCalls []int64
}

func (g *fakeGateway) CreateRemoteCharge(_ context.Context, amountMinorUnits int64, currency, receiptRef string) (string, error) {
	if g.chargeErr != nil {
		return "", g.chargeErr
	}
	return g.chargeID, nil
}

func (g *fakeGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return g.verifyResult
}

func (g *fakeGateway) Refund(_ context.Context, gatewayPaymentID string, amountMinorUnits int64) (*gateway.RefundRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refundedCalls = append(g.refundedCalls, amountMinorUnits)
	return &gateway.RefundRecord{ID: "rf_1", Status: "processed", Amount: amountMinorUnits}, nil
}

type fakePublisher struct {
	mu          sync.Mutex
	created     []events.OrderCreatedEvent
	settled     []events.PaymentSettledEvent
	refunded    []events.PaymentRefundedEvent
	compensated []events.StockCompensatedEvent
}

func (p *fakePublisher) PublishOrderCreated(e events.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *fakePublisher) PublishPaymentSettled(e events.PaymentSettledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = append(p.settled, e)
	return nil
}

func (p *fakePublisher) PublishPaymentRefunded(e events.PaymentRefundedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunded = append(p.refunded, e)
	return nil
}

func (p *fakePublisher) PublishStockCompensated(e events.StockCompensatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.compensated = append(p.compensated, e)
	return nil
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}
