package payment

import (
	"errors"

	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedTransactMode is a configuration error: the settings carry a mode other
	// than Authorize or AuthorizeAndCapture.
	ErrUnsupportedTransactMode = errors.New("not supported transaction mode")
	// ErrUnsupportedCyclePeriod is returned for a recurring cycle period the processor
	// schedule cannot express.
	ErrUnsupportedCyclePeriod = errors.New("not supported cycle period")
)

// Description prefixes. The processor truncates invoice numbers, so the order GUID travels
// in the description after the '#'.
const (
	fullOrderPrefix = "Full order"
	recurringPrefix = "Recurring payment"
	maxInvoiceLen   = 20
)

// Card is the raw card data collected at checkout.
type Card struct {
	Name        string
	Number      string
	ExpireMonth int
	ExpireYear  int
	CVV2        string
}

// Customer holds the addresses the request builder may send.
type Customer struct {
	BillingAddress  *orders.Address
	ShippingAddress *orders.Address
}

// ProcessPaymentRequest describes a new payment for an order that has not been charged yet.
type ProcessPaymentRequest struct {
	OrderGUID  string
	OrderTotal decimal.Decimal
	Card       Card
	Customer   Customer
	CustomerIP string

	// set for recurring payments only
	RecurringCycleLength int
	RecurringCyclePeriod recurring.CyclePeriod
	RecurringTotalCycles int
}

// ProcessPaymentResult is what the host stores on the order after a new payment.
type ProcessPaymentResult struct {
	Errors                         []string             `json:"errors,omitempty"`
	AuthorizationTransactionID     string               `json:"authorization_transaction_id,omitempty"`
	AuthorizationTransactionCode   string               `json:"authorization_transaction_code,omitempty"`
	AuthorizationTransactionResult string               `json:"authorization_transaction_result,omitempty"`
	CaptureTransactionID           string               `json:"capture_transaction_id,omitempty"`
	SubscriptionTransactionID      string               `json:"subscription_transaction_id,omitempty"`
	AvsResult                      string               `json:"avs_result,omitempty"`
	NewPaymentStatus               orders.PaymentStatus `json:"new_payment_status,omitempty"`
}

func (r *ProcessPaymentResult) AddError(msg string) { r.Errors = append(r.Errors, msg) }

// Success reports whether no error was collected.
func (r *ProcessPaymentResult) Success() bool { return len(r.Errors) == 0 }

// PaymentUpdate converts the result into the fields persisted on the order.
func (r *ProcessPaymentResult) PaymentUpdate() orders.PaymentUpdate {
	return orders.PaymentUpdate{
		Status:                         r.NewPaymentStatus,
		AuthorizationTransactionID:     r.AuthorizationTransactionID,
		AuthorizationTransactionCode:   r.AuthorizationTransactionCode,
		AuthorizationTransactionResult: r.AuthorizationTransactionResult,
		CaptureTransactionID:           r.CaptureTransactionID,
		SubscriptionTransactionID:      r.SubscriptionTransactionID,
		AvsResult:                      r.AvsResult,
	}
}

type CapturePaymentRequest struct {
	Order orders.Order
}

type CapturePaymentResult struct {
	Errors                   []string             `json:"errors,omitempty"`
	CaptureTransactionID     string               `json:"capture_transaction_id,omitempty"`
	CaptureTransactionResult string               `json:"capture_transaction_result,omitempty"`
	NewPaymentStatus         orders.PaymentStatus `json:"new_payment_status,omitempty"`
}

func (r *CapturePaymentResult) AddError(msg string) { r.Errors = append(r.Errors, msg) }

func (r *CapturePaymentResult) Success() bool { return len(r.Errors) == 0 }

func (r *CapturePaymentResult) PaymentUpdate() orders.PaymentUpdate {
	return orders.PaymentUpdate{
		Status:                   r.NewPaymentStatus,
		CaptureTransactionID:     r.CaptureTransactionID,
		CaptureTransactionResult: r.CaptureTransactionResult,
	}
}

// RefundPaymentRequest refunds AmountToRefund of Order. IsPartialRefund is decided by the
// host, which knows what was refunded before.
type RefundPaymentRequest struct {
	Order           orders.Order
	AmountToRefund  decimal.Decimal
	IsPartialRefund bool
}

type RefundPaymentResult struct {
	Errors           []string             `json:"errors,omitempty"`
	NewPaymentStatus orders.PaymentStatus `json:"new_payment_status,omitempty"`

	// RefundedAmount is the amount this call refunded; zero when a void was issued instead.
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
}

func (r *RefundPaymentResult) AddError(msg string) { r.Errors = append(r.Errors, msg) }

func (r *RefundPaymentResult) Success() bool { return len(r.Errors) == 0 }

type VoidPaymentRequest struct {
	Order orders.Order
}

type VoidPaymentResult struct {
	Errors           []string             `json:"errors,omitempty"`
	NewPaymentStatus orders.PaymentStatus `json:"new_payment_status,omitempty"`
}

func (r *VoidPaymentResult) AddError(msg string) { r.Errors = append(r.Errors, msg) }

func (r *VoidPaymentResult) Success() bool { return len(r.Errors) == 0 }

type CancelRecurringPaymentRequest struct {
	Order orders.Order
}

type CancelRecurringPaymentResult struct {
	Errors []string `json:"errors,omitempty"`
}

func (r *CancelRecurringPaymentResult) AddError(msg string) { r.Errors = append(r.Errors, msg) }

func (r *CancelRecurringPaymentResult) Success() bool { return len(r.Errors) == 0 }
