package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// IdempotencyRecord is the shape persisted in the idempotency DynamoDB table. One record
// guards the processing of one gateway transaction against one recurring payment.
type IdempotencyRecord struct {
	IdempotencyKey     string    `dynamodbav:"idempotency_key"` // PK
	Status             string    `dynamodbav:"status"`
	RecurringPaymentID string    `dynamodbav:"recurring_payment_id"`
	TransactionID      string    `dynamodbav:"transaction_id"`
	OrderID            string    `dynamodbav:"order_id,omitempty"`
	Outcome            string    `dynamodbav:"outcome,omitempty"`
	Attempts           int       `dynamodbav:"attempts"`
	CreatedAt          time.Time `dynamodbav:"created_at"`
	UpdatedAt          time.Time `dynamodbav:"updated_at"`
	ExpiresAt          int64     `dynamodbav:"expires_at"`       // TTL epoch seconds
	LeaseExpiresAt     int64     `dynamodbav:"lease_expires_at"` // IN_PROGRESS owner's deadline, epoch seconds
	Note               string    `dynamodbav:"note,omitempty"`
}
