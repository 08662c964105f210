package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus mirrors the host order's payment state.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusAuthorized        PaymentStatus = "AUTHORIZED"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusVoided            PaymentStatus = "VOIDED"
)

// Address is a customer billing or shipping address.
type Address struct {
	FirstName     string `dynamodbav:"first_name" json:"first_name" validate:"required"`
	LastName      string `dynamodbav:"last_name" json:"last_name" validate:"required"`
	Email         string `dynamodbav:"email,omitempty" json:"email,omitempty" validate:"omitempty,email"`
	Company       string `dynamodbav:"company,omitempty" json:"company,omitempty"`
	Address1      string `dynamodbav:"address1" json:"address1" validate:"required"`
	City          string `dynamodbav:"city" json:"city" validate:"required"`
	ZipPostalCode string `dynamodbav:"zip_postal_code" json:"zip_postal_code" validate:"required"`
	StateProvince string `dynamodbav:"state_province,omitempty" json:"state_province,omitempty"` // abbreviation
	CountryCode   string `dynamodbav:"country_code,omitempty" json:"country_code,omitempty" validate:"omitempty,len=2"`
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID                        string        `dynamodbav:"order_id"`   // PK
	OrderGUID                      string        `dynamodbav:"order_guid"` // GSI order_guid-index
	CustomerID                     string        `dynamodbav:"customer_id,omitempty"`
	OrderTotal                     Money         `dynamodbav:"order_total"`
	CurrencyCode                   string        `dynamodbav:"currency_code,omitempty"`
	PaymentStatus                  PaymentStatus `dynamodbav:"payment_status"`
	BillingAddress                 *Address      `dynamodbav:"billing_address,omitempty"`
	ShippingAddress                *Address      `dynamodbav:"shipping_address,omitempty"`
	AuthorizationTransactionID     string        `dynamodbav:"authorization_transaction_id,omitempty"`
	AuthorizationTransactionCode   string        `dynamodbav:"authorization_transaction_code,omitempty"` // "<transId>,<authCode>"
	AuthorizationTransactionResult string        `dynamodbav:"authorization_transaction_result,omitempty"`
	CaptureTransactionID           string        `dynamodbav:"capture_transaction_id,omitempty"`
	CaptureTransactionResult       string        `dynamodbav:"capture_transaction_result,omitempty"`
	SubscriptionTransactionID      string        `dynamodbav:"subscription_transaction_id,omitempty"`
	AvsResult                      string        `dynamodbav:"avs_result,omitempty"`
	MaskedCreditCardNumber         string        `dynamodbav:"masked_credit_card_number,omitempty"`
	CardExpirationMonth            string        `dynamodbav:"card_expiration_month,omitempty"`
	CardExpirationYear             string        `dynamodbav:"card_expiration_year,omitempty"`
	RefundedAmount                 Money         `dynamodbav:"refunded_amount"`
	CreatedAt                      time.Time     `dynamodbav:"created_at"`
	UpdatedAt                      time.Time     `dynamodbav:"updated_at"`
}

// PaymentUpdate carries the fields a payment operation changes. Empty fields are left untouched.
type PaymentUpdate struct {
	Status                         PaymentStatus
	AuthorizationTransactionID     string
	AuthorizationTransactionCode   string
	AuthorizationTransactionResult string
	CaptureTransactionID           string
	CaptureTransactionResult       string
	SubscriptionTransactionID      string
	AvsResult                      string
	MaskedCreditCardNumber         string
	CardExpirationMonth            string
	CardExpirationYear             string
	RefundedAmount                 decimal.Decimal // new running total, not an increment
}
