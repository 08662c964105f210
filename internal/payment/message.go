package payment

// ReconcileMessage is the queue message asking a worker to reconcile one notified
// transaction.
type ReconcileMessage struct {
	TransactionID string `json:"transaction_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
