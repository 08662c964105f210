package recurring

import (
	"time"

	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
)

// CyclePeriod is the unit of a subscription cycle.
type CyclePeriod string

const (
	CyclePeriodDays   CyclePeriod = "DAYS"
	CyclePeriodWeeks  CyclePeriod = "WEEKS"
	CyclePeriodMonths CyclePeriod = "MONTHS"
	CyclePeriodYears  CyclePeriod = "YEARS"
)

// Payment is the recurring-payment aggregate root. The initial order is referenced by id
// only; callers look it up through the orders store.
type Payment struct {
	RecurringPaymentID string      `dynamodbav:"recurring_payment_id"` // PK
	InitialOrderID     string      `dynamodbav:"initial_order_id"`     // GSI initial_order_id-index
	CycleLength        int         `dynamodbav:"cycle_length"`
	CyclePeriod        CyclePeriod `dynamodbav:"cycle_period"`
	TotalCycles        int         `dynamodbav:"total_cycles"`
	IsActive           bool        `dynamodbav:"is_active"`
	History            []History   `dynamodbav:"history"`
	HistoryCount       int         `dynamodbav:"history_count"`
	CreatedAt          time.Time   `dynamodbav:"created_at"`
	UpdatedAt          time.Time   `dynamodbav:"updated_at"`
}

// History is one successful billing cycle.
type History struct {
	OrderID   string    `dynamodbav:"order_id" json:"order_id"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
}

// OrderIDs returns the order ids of every recorded cycle.
func (p Payment) OrderIDs() []string {
	ids := make([]string, 0, len(p.History))
	for _, h := range p.History {
		ids = append(ids, h.OrderID)
	}
	return ids
}

// CycleResult is the outcome of one billing cycle handed to the host, which creates the
// next order from it.
type CycleResult struct {
	NewPaymentStatus           orders.PaymentStatus `json:"new_payment_status,omitempty"`
	AuthorizationTransactionID string               `json:"authorization_transaction_id,omitempty"`
	CaptureTransactionID       string               `json:"capture_transaction_id,omitempty"`
	RecurringPaymentFailed     bool                 `json:"recurring_payment_failed"`
	Errors                     []string             `json:"errors,omitempty"`
}
