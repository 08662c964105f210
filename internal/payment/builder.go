package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
	"github.com/imrishuroy/authorizenet-gateway/internal/config"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"github.com/shopspring/decimal"
)

// RequestBuilder maps host orders and checkout data onto processor requests.
// Merchant authentication is added by the client.
type RequestBuilder struct {
	settings config.Settings
	nowFunc  func() time.Time
}

func NewRequestBuilder(settings config.Settings) *RequestBuilder {
	return &RequestBuilder{settings: settings, nowFunc: time.Now}
}

// TransactionType returns the processor transaction type for the configured mode.
func (b *RequestBuilder) TransactionType() (string, error) {
	switch b.settings.TransactMode {
	case config.TransactModeAuthorize:
		return anet.TransactionTypeAuthOnly, nil
	case config.TransactModeAuthorizeAndCapture:
		return anet.TransactionTypeAuthCapture, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedTransactMode, b.settings.TransactMode)
	}
}

// Payment builds the sale or auth-only request for a new order.
func (b *RequestBuilder) Payment(req ProcessPaymentRequest) (*anet.CreateTransactionRequest, error) {
	txType, err := b.TransactionType()
	if err != nil {
		return nil, err
	}

	billTo, shipTo := b.addresses(req.Customer)
	return &anet.CreateTransactionRequest{
		TransactionRequest: anet.TransactionRequest{
			TransactionType: txType,
			Amount:          formatAmount(req.OrderTotal),
			CurrencyCode:    b.settings.CurrencyCode,
			Payment:         &anet.Payment{CreditCard: creditCard(req.Card)},
			Order:           orderInfo(req.OrderGUID, fullOrderPrefix),
			BillTo:          billTo,
			ShipTo:          shipTo,
			CustomerIP:      req.CustomerIP,
		},
	}, nil
}

// Capture builds a prior-auth capture of the order total.
func (b *RequestBuilder) Capture(order orders.Order) *anet.CreateTransactionRequest {
	return &anet.CreateTransactionRequest{
		TransactionRequest: anet.TransactionRequest{
			TransactionType: anet.TransactionTypePriorAuthCapture,
			Amount:          formatAmount(order.OrderTotal.Decimal),
			CurrencyCode:    b.settings.CurrencyCode,
			RefTransID:      firstCode(order.AuthorizationTransactionCode),
		},
	}
}

// Refund builds a refund of amount against the order's capture (or authorization).
// The processor only needs the last four card digits to match the original charge.
func (b *RequestBuilder) Refund(order orders.Order, amount decimal.Decimal, lastFour string) *anet.CreateTransactionRequest {
	return &anet.CreateTransactionRequest{
		TransactionRequest: anet.TransactionRequest{
			TransactionType: anet.TransactionTypeRefund,
			Amount:          formatAmount(amount),
			CurrencyCode:    b.settings.CurrencyCode,
			Payment: &anet.Payment{CreditCard: &anet.CreditCard{
				CardNumber:     lastFour,
				ExpirationDate: "XXXX",
			}},
			RefTransID: referenceTransactionID(order),
			Order:      orderInfo(order.OrderGUID, fullOrderPrefix),
		},
	}
}

// Void builds a void of the order's capture (or authorization).
func (b *RequestBuilder) Void(order orders.Order, lastFour string) *anet.CreateTransactionRequest {
	expiration := order.CardExpirationMonth + order.CardExpirationYear
	if expiration == "" {
		expiration = "XXXX"
	}
	return &anet.CreateTransactionRequest{
		TransactionRequest: anet.TransactionRequest{
			TransactionType: anet.TransactionTypeVoid,
			Payment: &anet.Payment{CreditCard: &anet.CreditCard{
				CardNumber:     lastFour,
				ExpirationDate: expiration,
			}},
			RefTransID: referenceTransactionID(order),
		},
	}
}

// Subscription builds an ARB subscription starting today.
func (b *RequestBuilder) Subscription(req ProcessPaymentRequest) (*anet.CreateSubscriptionRequest, error) {
	interval, err := scheduleInterval(req.RecurringCycleLength, req.RecurringCyclePeriod)
	if err != nil {
		return nil, err
	}

	billTo, shipTo := b.addresses(req.Customer)
	sub := anet.Subscription{
		Name: req.OrderGUID,
		PaymentSchedule: anet.PaymentSchedule{
			Interval:         interval,
			StartDate:        b.nowFunc().UTC().Format("2006-01-02"),
			TotalOccurrences: req.RecurringTotalCycles,
		},
		Amount:  formatAmount(req.OrderTotal),
		Payment: anet.Payment{CreditCard: creditCard(req.Card)},
		Order:   orderInfo(req.OrderGUID, recurringPrefix),
		BillTo:  billTo,
		ShipTo:  shipTo,
	}
	if req.Customer.BillingAddress != nil && req.Customer.BillingAddress.Email != "" {
		sub.Customer = &anet.Customer{Email: req.Customer.BillingAddress.Email}
	}
	return &anet.CreateSubscriptionRequest{Subscription: sub}, nil
}

// addresses picks bill-to and ship-to. The shipping address doubles as billing when the
// settings ask for it; it is then not sent a second time as ship-to.
func (b *RequestBuilder) addresses(c Customer) (billTo, shipTo *anet.CustomerAddress) {
	useShipping := b.settings.UseShippingAddressAsBilling && c.ShippingAddress != nil
	if useShipping {
		billTo = customerAddress(c.ShippingAddress)
	} else {
		billTo = customerAddress(c.BillingAddress)
	}
	if c.ShippingAddress != nil && !b.settings.UseShippingAddressAsBilling {
		shipTo = customerAddress(c.ShippingAddress)
	}
	return billTo, shipTo
}

func customerAddress(a *orders.Address) *anet.CustomerAddress {
	if a == nil {
		return nil
	}
	return &anet.CustomerAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Company:   a.Company,
		Address:   a.Address1,
		City:      a.City,
		State:     a.StateProvince,
		Zip:       a.ZipPostalCode,
		Country:   a.CountryCode,
	}
}

func creditCard(c Card) *anet.CreditCard {
	return &anet.CreditCard{
		CardNumber:     c.Number,
		ExpirationDate: fmt.Sprintf("%02d%d", c.ExpireMonth, c.ExpireYear),
		CardCode:       c.CVV2,
	}
}

// orderInfo keeps the first 20 characters of the GUID as the invoice number; the full GUID
// is recoverable from the description.
func orderInfo(guid, prefix string) *anet.OrderInfo {
	return &anet.OrderInfo{
		InvoiceNumber: InvoiceNumber(guid),
		Description:   prefix + " #" + guid,
	}
}

// InvoiceNumber truncates an order GUID to the processor's invoice number limit.
func InvoiceNumber(guid string) string {
	if len(guid) > maxInvoiceLen {
		return guid[:maxInvoiceLen]
	}
	return guid
}

func scheduleInterval(length int, period recurring.CyclePeriod) (anet.PaymentScheduleInterval, error) {
	switch period {
	case recurring.CyclePeriodDays:
		return anet.PaymentScheduleInterval{Length: length, Unit: anet.IntervalUnitDays}, nil
	case recurring.CyclePeriodWeeks:
		return anet.PaymentScheduleInterval{Length: length * 7, Unit: anet.IntervalUnitDays}, nil
	case recurring.CyclePeriodMonths:
		return anet.PaymentScheduleInterval{Length: length, Unit: anet.IntervalUnitMonths}, nil
	case recurring.CyclePeriodYears:
		return anet.PaymentScheduleInterval{Length: length * 12, Unit: anet.IntervalUnitMonths}, nil
	default:
		return anet.PaymentScheduleInterval{}, fmt.Errorf("%w: %q", ErrUnsupportedCyclePeriod, period)
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// firstCode returns the transaction id part of a "<transId>,<authCode>" pair.
func firstCode(code string) string {
	id, _, _ := strings.Cut(code, ",")
	return id
}

func referenceTransactionID(order orders.Order) string {
	if order.CaptureTransactionID != "" {
		return firstCode(order.CaptureTransactionID)
	}
	return firstCode(order.AuthorizationTransactionCode)
}

// lastFourDigits returns the last four characters of a masked card number, or "" when
// fewer are stored.
func lastFourDigits(masked string) string {
	if len(masked) < 4 {
		return ""
	}
	return masked[len(masked)-4:]
}
