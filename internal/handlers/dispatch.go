package handlers

import (
	"context"
	"fmt"

	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
)

// Dispatcher routes a notified transaction id to reconciliation.
type Dispatcher interface {
	Dispatch(ctx context.Context, transactionID, correlationID string) error
}

// Sender is satisfied by aws.Publisher.
type Sender interface {
	SendJSON(ctx context.Context, v interface{}, attributes map[string]string) error
}

// QueueDispatcher enqueues notifications for the worker.
type QueueDispatcher struct {
	sender Sender
}

func NewQueueDispatcher(sender Sender) *QueueDispatcher {
	return &QueueDispatcher{sender: sender}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, transactionID, correlationID string) error {
	msg := payment.ReconcileMessage{TransactionID: transactionID, CorrelationID: correlationID}
	attrs := map[string]string{
		"transaction_id": transactionID,
		"correlation_id": correlationID,
	}
	if err := d.sender.SendJSON(ctx, msg, attrs); err != nil {
		return fmt.Errorf("enqueue transaction %s: %w", transactionID, err)
	}
	return nil
}

// Reconciler is implemented by payment.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, transactionID string) error
}

// InlineDispatcher reconciles within the request, for deployments without a queue.
type InlineDispatcher struct {
	reconciler Reconciler
}

func NewInlineDispatcher(r Reconciler) *InlineDispatcher {
	return &InlineDispatcher{reconciler: r}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, transactionID, correlationID string) error {
	return d.reconciler.Reconcile(ctx, transactionID)
}
