package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"github.com/shopspring/decimal"
)

type fakeOrders struct {
	mu      sync.Mutex
	orders  map[string]orders.Order
	applied []orders.PaymentUpdate

	getErr   error
	applyErr error
}

func newFakeOrders(list ...orders.Order) *fakeOrders {
	f := &fakeOrders{orders: map[string]orders.Order{}}
	for _, o := range list {
		f.orders[o.OrderID] = o
	}
	return f
}

func (f *fakeOrders) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeOrders) ApplyPayment(ctx context.Context, orderID string, expected orders.PaymentStatus, upd orders.PaymentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	o, ok := f.orders[orderID]
	if !ok || (expected != "" && o.PaymentStatus != expected) {
		return orders.ErrStatusMismatch
	}
	if upd.Status != "" {
		o.PaymentStatus = upd.Status
	}
	if upd.SubscriptionTransactionID != "" {
		o.SubscriptionTransactionID = upd.SubscriptionTransactionID
	}
	if upd.MaskedCreditCardNumber != "" {
		o.MaskedCreditCardNumber = upd.MaskedCreditCardNumber
	}
	if upd.RefundedAmount.IsPositive() {
		o.RefundedAmount = orders.NewMoney(upd.RefundedAmount)
	}
	f.orders[orderID] = o
	f.applied = append(f.applied, upd)
	return nil
}

type fakeRecurring struct {
	created   []recurring.Payment
	createErr error
}

func (f *fakeRecurring) Create(ctx context.Context, p recurring.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, p)
	return nil
}

// fakeProcessor returns canned results and records the requests it saw.
type fakeProcessor struct {
	payResult     *payment.ProcessPaymentResult
	payErr        error
	captureResult *payment.CapturePaymentResult
	refundResult  *payment.RefundPaymentResult
	voidResult    *payment.VoidPaymentResult
	cancelResult  *payment.CancelRecurringPaymentResult
	fee           decimal.Decimal

	payReq    payment.ProcessPaymentRequest
	refundReq payment.RefundPaymentRequest
	calls     int
}

func (f *fakeProcessor) ProcessPayment(ctx context.Context, req payment.ProcessPaymentRequest) (*payment.ProcessPaymentResult, error) {
	f.calls++
	f.payReq = req
	return f.payResult, f.payErr
}

func (f *fakeProcessor) Capture(ctx context.Context, req payment.CapturePaymentRequest) *payment.CapturePaymentResult {
	f.calls++
	return f.captureResult
}

func (f *fakeProcessor) Refund(ctx context.Context, req payment.RefundPaymentRequest) *payment.RefundPaymentResult {
	f.calls++
	f.refundReq = req
	return f.refundResult
}

func (f *fakeProcessor) Void(ctx context.Context, req payment.VoidPaymentRequest) *payment.VoidPaymentResult {
	f.calls++
	return f.voidResult
}

func (f *fakeProcessor) ProcessRecurringPayment(ctx context.Context, req payment.ProcessPaymentRequest) (*payment.ProcessPaymentResult, error) {
	f.calls++
	f.payReq = req
	return f.payResult, f.payErr
}

func (f *fakeProcessor) CancelRecurringPayment(ctx context.Context, req payment.CancelRecurringPaymentRequest) *payment.CancelRecurringPaymentResult {
	f.calls++
	return f.cancelResult
}

func (f *fakeProcessor) AdditionalHandlingFee(subtotal decimal.Decimal) decimal.Decimal {
	return f.fee
}

type dispatched struct {
	transactionID string
	correlationID string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, transactionID, correlationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatched{transactionID, correlationID})
	return f.err
}

type recordingSender struct {
	body  interface{}
	attrs map[string]string
	err   error
}

func (s *recordingSender) SendJSON(ctx context.Context, v interface{}, attributes map[string]string) error {
	s.body = v
	s.attrs = attributes
	return s.err
}

type fakeReconciler struct {
	ids []string
}

func (f *fakeReconciler) Reconcile(ctx context.Context, transactionID string) error {
	f.ids = append(f.ids, transactionID)
	if transactionID == "broken" {
		return errors.New("details unavailable")
	}
	return nil
}
