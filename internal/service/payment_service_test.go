package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

func newPaymentServiceForTest(payments *fakePayments, orders *fakeOrders, catalog *fakeCatalog, gw *fakeGateway) (*PaymentService, *fakePublisher) {
	publisher := &fakePublisher{}
	svc := NewPaymentService(payments, orders, catalog, gw, publisher, 10, zap.NewNop())
	return svc, publisher
}

func seedPendingOrder(orders *fakeOrders, total float64) *domain.Order {
	order := &domain.Order{
		OrderNumber: "ORD-PAY1",
		CustomerID:  "cust-1",
		Items: []domain.OrderItem{
			{ProductID: "prod-x", VendorID: "vendor-1", Quantity: 1, Price: total, Status: domain.ItemStatusPending},
		},
		TotalAmount:    total,
		PaymentMethod:  domain.PaymentMethodGateway,
		PaymentStatus:  domain.PaymentStatePending,
		Status:         domain.OrderStatusPending,
		GatewayOrderID: "gw_order_1",
	}
	orders.put(order)
	return order
}

func override(v float64) *float64 { return &v }

func TestSettle_CommissionSplit(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	seedPendingOrder(orders, 1000)
	payments := newFakePayments()
	svc, publisher := newPaymentServiceForTest(payments, orders, newFakeCatalog(), &fakeGateway{verifyResult: true})

	payment, err := svc.Settle(context.Background(), SettleRequest{
		OrderNumber:        "ORD-PAY1",
		GatewayOrderID:     "gw_order_1",
		GatewayPaymentID:   "gw_pay_1",
		Signature:          "sig",
		CommissionOverride: override(10),
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, payment.PlatformCommission)
	assert.Equal(t, 900.0, payment.VendorAmount)
	assert.Equal(t, 1000.0, payment.TotalAmount)
	assert.Equal(t, domain.Round2(payment.VendorAmount+payment.PlatformCommission), payment.TotalAmount)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "vendor-1", payment.VendorID)
	assert.NotEmpty(t, payment.TransactionID)

	order, err := orders.GetOrder(context.Background(), "ORD-PAY1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateCompleted, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)

	require.Len(t, publisher.settled, 1)
	assert.Equal(t, payment.TransactionID, publisher.settled[0].TransactionID)
}

func TestSettle_UsesVendorStoredRate(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	seedPendingOrder(orders, 200)
	catalog := newFakeCatalog()
	catalog.vendorRates["vendor-1"] = 12.5
	svc, _ := newPaymentServiceForTest(newFakePayments(), orders, catalog, &fakeGateway{verifyResult: true})

	payment, err := svc.Settle(context.Background(), SettleRequest{
		OrderNumber:      "ORD-PAY1",
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "gw_pay_1",
		Signature:        "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, payment.CommissionPercentage)
	assert.Equal(t, 25.0, payment.PlatformCommission)
	assert.Equal(t, 175.0, payment.VendorAmount)
}

func TestSettle_FallsBackToDefaultRate(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	seedPendingOrder(orders, 300)
	svc, _ := newPaymentServiceForTest(newFakePayments(), orders, newFakeCatalog(), &fakeGateway{verifyResult: true})

	payment, err := svc.Settle(context.Background(), SettleRequest{
		OrderNumber:      "ORD-PAY1",
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "gw_pay_1",
		Signature:        "sig",
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, payment.CommissionPercentage)
	assert.Equal(t, 30.0, payment.PlatformCommission)
}

func TestSettle_SignatureMismatch(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	seedPendingOrder(orders, 1000)
	payments := newFakePayments()
	svc, _ := newPaymentServiceForTest(payments, orders, newFakeCatalog(), &fakeGateway{verifyResult: false})

	_, err := svc.Settle(context.Background(), SettleRequest{
		OrderNumber:      "ORD-PAY1",
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "gw_pay_1",
		Signature:        "forged",
	})
	assert.ErrorIs(t, err, domain.ErrSignatureMismatch)

	// No ledger row, and the order records the failure.
	assert.Equal(t, 0, payments.count())
	order, _ := orders.GetOrder(context.Background(), "ORD-PAY1")
	assert.Equal(t, domain.PaymentStateFailed, order.PaymentStatus)
}

func TestSettle_RejectsForeignGatewayOrder(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	seedPendingOrder(orders, 100000)
	payments := newFakePayments()
	svc, _ := newPaymentServiceForTest(payments, orders, newFakeCatalog(), &fakeGateway{verifyResult: true})

	// A signature valid for some cheap foreign charge must not settle this
	// order at its own total.
	_, err := svc.Settle(context.Background(), SettleRequest{
		OrderNumber:      "ORD-PAY1",
		GatewayOrderID:   "gw_order_cheap",
		GatewayPaymentID: "gw_pay_cheap",
		Signature:        "sig",
	})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)

	assert.Equal(t, 0, payments.count())
	order, _ := orders.GetOrder(context.Background(), "ORD-PAY1")
	assert.Equal(t, domain.PaymentStatePending, order.PaymentStatus)

	// The webhook path enforces the same binding.
	_, err = svc.SettleFromWebhook(context.Background(), "ORD-PAY1", "gw_order_cheap", "gw_pay_cheap")
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, payments.count())
}

func TestSettleFromWebhook_DuplicateHealsPendingOrder(t *testing.T) {
	t.Parallel()

	// Ledger row exists from a first attempt whose order flip never landed.
	orders := newFakeOrders()
	seedPendingOrder(orders, 1000)
	payments := newFakePayments(seedSettledPayment(1000))
	svc, _ := newPaymentServiceForTest(payments, orders, newFakeCatalog(), &fakeGateway{verifyResult: true})

	payment, err := svc.SettleFromWebhook(context.Background(), "ORD-PAY1", "gw_order_1", "gw_pay_1")
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", payment.TransactionID)
	assert.Equal(t, 1, payments.count())

	order, err := orders.GetOrder(context.Background(), "ORD-PAY1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateCompleted, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
}

func TestSettle_DuplicateIsNoOpSuccess(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	seedPendingOrder(orders, 1000)
	payments := newFakePayments()
	svc, publisher := newPaymentServiceForTest(payments, orders, newFakeCatalog(), &fakeGateway{verifyResult: true})

	req := SettleRequest{
		OrderNumber:      "ORD-PAY1",
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "gw_pay_1",
		Signature:        "sig",
	}

	first, err := svc.Settle(context.Background(), req)
	require.NoError(t, err)

	// The racing webhook delivery settles the same gateway payment.
	second, err := svc.SettleFromWebhook(context.Background(), "ORD-PAY1", "gw_order_1", "gw_pay_1")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, 1, payments.count(), "exactly one ledger row")
	assert.Len(t, publisher.settled, 1, "settlement side effects applied once")
}

func TestSettle_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newPaymentServiceForTest(newFakePayments(), newFakeOrders(), newFakeCatalog(), &fakeGateway{verifyResult: true})

	tests := []struct {
		name string
		req  SettleRequest
	}{
		{"missing order", SettleRequest{GatewayOrderID: "a", GatewayPaymentID: "b", Signature: "c"}},
		{"missing gateway order", SettleRequest{OrderNumber: "o", GatewayPaymentID: "b", Signature: "c"}},
		{"missing gateway payment", SettleRequest{OrderNumber: "o", GatewayOrderID: "a", Signature: "c"}},
		{"missing signature", SettleRequest{OrderNumber: "o", GatewayOrderID: "a", GatewayPaymentID: "b"}},
		{"bad override", SettleRequest{OrderNumber: "o", GatewayOrderID: "a", GatewayPaymentID: "b", Signature: "c", CommissionOverride: override(140)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Settle(context.Background(), tt.req)
			var validationErr *domain.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func seedSettledPayment(total float64) *domain.Payment {
	return &domain.Payment{
		TransactionID:        "TXN-1",
		OrderNumber:          "ORD-PAY1",
		CustomerID:           "cust-1",
		VendorID:             "vendor-1",
		PaymentMethod:        domain.PaymentMethodGateway,
		OrderAmount:          total,
		TotalAmount:          total,
		VendorAmount:         total * 0.9,
		PlatformCommission:   total * 0.1,
		CommissionPercentage: 10,
		Status:               domain.PaymentStatusCompleted,
		GatewayOrderID:       "gw_order_1",
		GatewayPaymentID:     "gw_pay_1",
		Version:              1,
		CreatedAt:            time.Now().UTC(),
	}
}

func TestRefund_Partial(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	gw := &fakeGateway{}
	svc, publisher := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), gw)

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	payment, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 400, Reason: "damaged item"}, admin)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, payment.Status)
	assert.Equal(t, 400.0, payment.RefundAmount)
	assert.Equal(t, "damaged item", payment.RefundReason)
	require.NotNil(t, payment.RefundedAt)
	assert.Equal(t, []int64{40000}, gw.refundedCalls)
	require.Len(t, publisher.refunded, 1)
}

func TestRefund_Full(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	settled := seedPendingOrder(orders, 1000)
	settled.PaymentStatus = domain.PaymentStateCompleted
	settled.Status = domain.OrderStatusConfirmed
	orders.put(settled)
	payments := newFakePayments(seedSettledPayment(1000))
	svc, _ := newPaymentServiceForTest(payments, orders, newFakeCatalog(), &fakeGateway{})

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	payment, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 1000, Reason: "order cancelled"}, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, 1000.0, payment.RefundAmount)

	// The full refund reflects back onto the order row.
	order, err := orders.GetOrder(context.Background(), "ORD-PAY1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateRefunded, order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status, "fulfillment status is untouched")
}

func TestRefund_ExceedsTotal(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	gw := &fakeGateway{}
	svc, _ := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), gw)

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	_, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 1500}, admin)
	assert.ErrorIs(t, err, domain.ErrRefundExceedsTotal)
	assert.Empty(t, gw.refundedCalls, "gateway must not be called for a rejected refund")
}

func TestRefund_CorrectionOverwritesNotAdds(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	svc, _ := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), &fakeGateway{})
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 400}, admin)
	require.NoError(t, err)

	payment, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 600}, admin)
	require.NoError(t, err)
	assert.Equal(t, 600.0, payment.RefundAmount, "correction replaces the stored amount")
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, payment.Status)
}

func TestRefund_FullyRefundedIsTerminal(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	svc, _ := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), &fakeGateway{})
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	_, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 1000}, admin)
	require.NoError(t, err)

	_, err = svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 100}, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRefund_RequiresAdmin(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	svc, _ := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), &fakeGateway{})

	_, err := svc.Refund(context.Background(), RefundRequest{TransactionID: "TXN-1", Amount: 100}, domain.Actor{ID: "vendor-1", Role: domain.RoleVendor})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRecordExternalRefund(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	gw := &fakeGateway{}
	svc, _ := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), gw)

	payment, err := svc.RecordExternalRefund(context.Background(), "gw_pay_1", 25000, "gateway initiated")
	require.NoError(t, err)
	assert.Equal(t, 250.0, payment.RefundAmount)
	assert.Equal(t, domain.PaymentStatusPartiallyRefunded, payment.Status)
	assert.Empty(t, gw.refundedCalls, "no outbound call for a gateway-initiated refund")
}

func TestMarkReconciled(t *testing.T) {
	t.Parallel()

	payments := newFakePayments(seedSettledPayment(1000))
	svc, _ := newPaymentServiceForTest(payments, newFakeOrders(), newFakeCatalog(), &fakeGateway{})

	err := svc.MarkReconciled(context.Background(), []string{"TXN-1"}, domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
	require.NoError(t, err)

	payment, err := payments.GetByTransactionID(context.Background(), "TXN-1")
	require.NoError(t, err)
	assert.True(t, payment.Reconciled)
	assert.Equal(t, "admin-1", payment.ReconciledBy)
	require.NotNil(t, payment.ReconciledAt)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status, "reconciliation never touches status")
}

func TestMarkReconciled_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc, _ := newPaymentServiceForTest(newFakePayments(), newFakeOrders(), newFakeCatalog(), &fakeGateway{})
	err := svc.MarkReconciled(context.Background(), []string{"TXN-1"}, domain.Actor{ID: "cust-1", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestMarkFailed_DoesNotTouchSettledOrder(t *testing.T) {
	t.Parallel()

	orders := newFakeOrders()
	order := seedPendingOrder(orders, 100)
	order.PaymentStatus = domain.PaymentStateCompleted
	orders.put(order)

	svc, _ := newPaymentServiceForTest(newFakePayments(), orders, newFakeCatalog(), &fakeGateway{})
	require.NoError(t, svc.MarkFailed(context.Background(), "ORD-PAY1", "card declined"))

	got, _ := orders.GetOrder(context.Background(), "ORD-PAY1")
	assert.Equal(t, domain.PaymentStateCompleted, got.PaymentStatus)
}
