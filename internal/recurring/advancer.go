package recurring

import (
	"context"
	"fmt"
)

// Sender is satisfied by aws.Publisher.
type Sender interface {
	SendJSON(ctx context.Context, v interface{}, attributes map[string]string) error
}

// NextCycleMessage is what the host's recurring-cycle consumer receives.
type NextCycleMessage struct {
	RecurringPaymentID string      `json:"recurring_payment_id"`
	InitialOrderID     string      `json:"initial_order_id"`
	Result             CycleResult `json:"result"`
}

// QueueAdvancer hands cycle outcomes to the host over a queue. The host owns creating the
// next order; this side only reports what the processor did.
type QueueAdvancer struct {
	sender Sender
}

func NewQueueAdvancer(sender Sender) *QueueAdvancer {
	return &QueueAdvancer{sender: sender}
}

// ProcessNextRecurringPayment publishes the outcome of a cycle for p.
func (a *QueueAdvancer) ProcessNextRecurringPayment(ctx context.Context, p Payment, result CycleResult) error {
	msg := NextCycleMessage{
		RecurringPaymentID: p.RecurringPaymentID,
		InitialOrderID:     p.InitialOrderID,
		Result:             result,
	}
	attrs := map[string]string{
		"recurring_payment_id": p.RecurringPaymentID,
		"failed":               fmt.Sprintf("%t", result.RecurringPaymentFailed),
	}
	if err := a.sender.SendJSON(ctx, msg, attrs); err != nil {
		return fmt.Errorf("advance recurring payment %s: %w", p.RecurringPaymentID, err)
	}
	return nil
}
