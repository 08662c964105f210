package validation

import (
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/shopspring/decimal"
)

// PaymentInfo is the card data collected at checkout.
type PaymentInfo struct {
	CardholderName string `json:"cardholder_name" form:"CardholderName" validate:"required"`
	CardNumber     string `json:"card_number" form:"CardNumber" validate:"required,credit_card"`
	CardCode       string `json:"card_code" form:"CardCode" validate:"required,numeric,min=3,max=4"`
	ExpireMonth    int    `json:"expire_month" form:"ExpireMonth" validate:"required,min=1,max=12"`
	ExpireYear     int    `json:"expire_year" form:"ExpireYear" validate:"required,min=2000"`
}

// ProcessPaymentRequest is the payload for POST /payments
type ProcessPaymentRequest struct {
	OrderID         string          `json:"order_id" validate:"required"`
	CustomerIP      string          `json:"customer_ip,omitempty" validate:"omitempty,ip"`
	PaymentInfo     PaymentInfo     `json:"payment_info" validate:"required"`
	BillingAddress  *orders.Address `json:"billing_address" validate:"required"`
	ShippingAddress *orders.Address `json:"shipping_address,omitempty" validate:"omitempty"`
}

// RecurringPaymentRequest is the payload for POST /orders/:order_id/recurring
type RecurringPaymentRequest struct {
	PaymentInfo     PaymentInfo     `json:"payment_info" validate:"required"`
	BillingAddress  *orders.Address `json:"billing_address" validate:"required"`
	ShippingAddress *orders.Address `json:"shipping_address,omitempty" validate:"omitempty"`
	CycleLength     int             `json:"cycle_length" validate:"required,min=1"`
	CyclePeriod     string          `json:"cycle_period" validate:"required,oneof=DAYS WEEKS MONTHS YEARS"`
	TotalCycles     int             `json:"total_cycles" validate:"required,min=1"`
}

// RefundRequest is the payload for POST /orders/:order_id/refund
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"` // checked by refundStructValidation
}

// IPNForm is the form-encoded silent post the processor sends for every transaction.
type IPNForm struct {
	ResponseCode  string `form:"x_response_code"`
	TransactionID string `form:"x_trans_id"`
}
