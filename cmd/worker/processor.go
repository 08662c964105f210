package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
	"go.uber.org/zap"
)

// Processor reconciles the transaction ids the notification endpoint enqueued.
type Processor struct {
	reconciler Reconciler
	logger     *zap.Logger
}

func NewProcessor(reconciler Reconciler, logger *zap.Logger) *Processor {
	return &Processor{reconciler: reconciler, logger: logger}
}

// Handle processes an SQS batch. Records that fail are reported back individually so only
// they are redelivered; after the queue's receive limit they land in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg payment.ReconcileMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.TransactionID == "" {
		return fmt.Errorf("message %s carries no transaction id", rec.MessageId)
	}

	log := p.logger.With(
		zap.String("transaction_id", msg.TransactionID),
		zap.String("correlation_id", msg.CorrelationID),
		zap.Int("receive_count", receiveCount(rec)))
	log.Info("reconciling transaction")

	if err := p.reconciler.Reconcile(ctx, msg.TransactionID); err != nil {
		return fmt.Errorf("reconcile transaction %s: %w", msg.TransactionID, err)
	}
	return nil
}

func receiveCount(rec events.SQSMessage) int {
	var n int
	_, _ = fmt.Sscanf(rec.Attributes["ApproximateReceiveCount"], "%d", &n)
	return n
}
