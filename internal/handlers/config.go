package handlers

import (
	"context"

	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderStore is the part of orders.Store the handlers use.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	ApplyPayment(ctx context.Context, orderID string, expected orders.PaymentStatus, upd orders.PaymentUpdate) error
}

type RecurringStore interface {
	Create(ctx context.Context, p recurring.Payment) error
}

// PaymentProcessor is implemented by payment.Processor.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, req payment.ProcessPaymentRequest) (*payment.ProcessPaymentResult, error)
	Capture(ctx context.Context, req payment.CapturePaymentRequest) *payment.CapturePaymentResult
	Refund(ctx context.Context, req payment.RefundPaymentRequest) *payment.RefundPaymentResult
	Void(ctx context.Context, req payment.VoidPaymentRequest) *payment.VoidPaymentResult
	ProcessRecurringPayment(ctx context.Context, req payment.ProcessPaymentRequest) (*payment.ProcessPaymentResult, error)
	CancelRecurringPayment(ctx context.Context, req payment.CancelRecurringPaymentRequest) *payment.CancelRecurringPaymentResult
	AdditionalHandlingFee(subtotal decimal.Decimal) decimal.Decimal
}

// HandlerConfig groups dependencies for the payment and notification handlers.
type HandlerConfig struct {
	Orders     OrderStore
	Recurring  RecurringStore
	Processor  PaymentProcessor
	Dispatcher Dispatcher
	Logger     *zap.Logger
}
