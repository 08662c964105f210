package anet

import "github.com/shopspring/decimal"

// Result codes of the response envelope.
const (
	ResultCodeOk    = "Ok"
	ResultCodeError = "Error"
)

// Transaction types.
const (
	TransactionTypeAuthOnly         = "authOnlyTransaction"
	TransactionTypeAuthCapture      = "authCaptureTransaction"
	TransactionTypePriorAuthCapture = "priorAuthCaptureTransaction"
	TransactionTypeRefund           = "refundTransaction"
	TransactionTypeVoid             = "voidTransaction"
)

// TransactionStatusCapturedPendingSettlement is reported for captures not yet settled;
// they can be voided but not refunded.
const TransactionStatusCapturedPendingSettlement = "capturedPendingSettlement"

// Subscription interval units.
const (
	IntervalUnitDays   = "days"
	IntervalUnitMonths = "months"
)

// MerchantAuthentication is filled in by the client on every request.
type MerchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type CreditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

type Payment struct {
	CreditCard *CreditCard `json:"creditCard,omitempty"`
}

// OrderInfo is the processor's order block; InvoiceNumber is limited to 20 characters.
type OrderInfo struct {
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Description   string `json:"description,omitempty"`
}

type CustomerAddress struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Company   string `json:"company,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Customer struct {
	Email string `json:"email,omitempty"`
}

// TransactionRequest fields follow the processor schema order, which the API enforces.
type TransactionRequest struct {
	TransactionType string           `json:"transactionType"`
	Amount          string           `json:"amount,omitempty"`
	CurrencyCode    string           `json:"currencyCode,omitempty"`
	Payment         *Payment         `json:"payment,omitempty"`
	RefTransID      string           `json:"refTransId,omitempty"`
	Order           *OrderInfo       `json:"order,omitempty"`
	BillTo          *CustomerAddress `json:"billTo,omitempty"`
	ShipTo          *CustomerAddress `json:"shipTo,omitempty"`
	CustomerIP      string           `json:"customerIP,omitempty"`
}

type CreateTransactionRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	TransactionRequest     TransactionRequest     `json:"transactionRequest"`
}

type Message struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// Messages is the top-level result block present on every response.
type Messages struct {
	ResultCode string    `json:"resultCode"`
	Message    []Message `json:"message"`
}

func (m Messages) IsOk() bool { return m.ResultCode == ResultCodeOk }

// First returns the first message, or the zero value when there is none.
func (m Messages) First() Message {
	if len(m.Message) == 0 {
		return Message{}
	}
	return m.Message[0]
}

type TransactionMessage struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type TransactionError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

type TransactionResponse struct {
	ResponseCode  string               `json:"responseCode"`
	AuthCode      string               `json:"authCode"`
	AvsResultCode string               `json:"avsResultCode"`
	TransID       string               `json:"transId"`
	RefTransID    string               `json:"refTransID"`
	Messages      []TransactionMessage `json:"messages,omitempty"`
	Errors        []TransactionError   `json:"errors,omitempty"`
}

type CreateTransactionResponse struct {
	TransactionResponse *TransactionResponse `json:"transactionResponse,omitempty"`
	RefID               string               `json:"refId,omitempty"`
	Messages            Messages             `json:"messages"`
}

type GetTransactionDetailsRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	TransID                string                 `json:"transId"`
}

// TransactionDetails is the fetched state of a single processor transaction.
type TransactionDetails struct {
	TransID           string          `json:"transId"`
	TransactionType   string          `json:"transactionType"`
	TransactionStatus string          `json:"transactionStatus"`
	ResponseCode      int             `json:"responseCode"`
	AuthAmount        decimal.Decimal `json:"authAmount"`
	SettleAmount      decimal.Decimal `json:"settleAmount"`
	Order             *OrderInfo      `json:"order,omitempty"`
}

type GetTransactionDetailsResponse struct {
	Transaction *TransactionDetails `json:"transaction,omitempty"`
	Messages    Messages            `json:"messages"`
}

type PaymentScheduleInterval struct {
	Length int    `json:"length"`
	Unit   string `json:"unit"`
}

type PaymentSchedule struct {
	Interval         PaymentScheduleInterval `json:"interval"`
	StartDate        string                  `json:"startDate"`
	TotalOccurrences int                     `json:"totalOccurrences"`
}

type Subscription struct {
	Name            string           `json:"name"`
	PaymentSchedule PaymentSchedule  `json:"paymentSchedule"`
	Amount          string           `json:"amount"`
	Payment         Payment          `json:"payment"`
	Order           *OrderInfo       `json:"order,omitempty"`
	Customer        *Customer        `json:"customer,omitempty"`
	BillTo          *CustomerAddress `json:"billTo,omitempty"`
	ShipTo          *CustomerAddress `json:"shipTo,omitempty"`
}

type CreateSubscriptionRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	Subscription           Subscription           `json:"subscription"`
}

type CreateSubscriptionResponse struct {
	SubscriptionID string   `json:"subscriptionId"`
	RefID          string   `json:"refId,omitempty"`
	Messages       Messages `json:"messages"`
}

type CancelSubscriptionRequest struct {
	MerchantAuthentication MerchantAuthentication `json:"merchantAuthentication"`
	SubscriptionID         string                 `json:"subscriptionId"`
}

type CancelSubscriptionResponse struct {
	Messages Messages `json:"messages"`
}
