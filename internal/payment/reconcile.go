package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
	"github.com/imrishuroy/authorizenet-gateway/internal/idempotency"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"go.uber.org/zap"
)

// OrderRepository is the part of the order store reconciliation reads.
type OrderRepository interface {
	GetByGUID(ctx context.Context, guid string) (*orders.Order, error)
	GetByIDs(ctx context.Context, ids []string) ([]orders.Order, error)
}

type RecurringRepository interface {
	SearchByInitialOrder(ctx context.Context, orderID string) ([]recurring.Payment, error)
	RecordFirstPayment(ctx context.Context, p recurring.Payment, orderID string, status orders.PaymentStatus, transactionID string) error
}

// CycleAdvancer hands a cycle outcome to the host, which creates the next order.
type CycleAdvancer interface {
	ProcessNextRecurringPayment(ctx context.Context, p recurring.Payment, result recurring.CycleResult) error
}

// Claimer guards (recurring payment, transaction) pairs against concurrent processing.
type Claimer interface {
	Claim(ctx context.Context, recurringPaymentID, transactionID, orderID string) (bool, error)
	MarkDone(ctx context.Context, key, outcome string) error
	MarkFailed(ctx context.Context, key, note string) error
}

type MetricsCounter interface {
	Count(ctx context.Context, name string, dimensions map[string]string) error
}

// Metric names.
const (
	MetricReconciled       = "reconciled"
	MetricSkippedDuplicate = "skipped_duplicate"
	MetricDropped          = "dropped"
	MetricFailedCycle      = "failed_cycle"
)

// Claim outcomes stored on DONE records.
const (
	outcomeFirstCycle  = "first_cycle_recorded"
	outcomeAdvanced    = "cycle_advanced"
	outcomeFailedCycle = "failed_cycle_advanced"
)

// refundStatus is the transaction status of refunds; they never advance a cycle.
const refundStatus = "refundTransaction"

// Reconciler applies recurring billing notifications. Each transaction id advances a
// recurring payment at most once, no matter how often it is delivered.
type Reconciler struct {
	client    anet.Client
	orders    OrderRepository
	recurring RecurringRepository
	advancer  CycleAdvancer
	claims    Claimer
	metrics   MetricsCounter
	logger    *zap.Logger
}

func NewReconciler(client anet.Client, orderRepo OrderRepository, recurringRepo RecurringRepository,
	advancer CycleAdvancer, claims Claimer, metrics MetricsCounter, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		client:    client,
		orders:    orderRepo,
		recurring: recurringRepo,
		advancer:  advancer,
		claims:    claims,
		metrics:   metrics,
		logger:    logger,
	}
}

// Reconcile processes a notified transaction id. Notifications that cannot be matched are
// logged and dropped with a nil error. A non-nil error means storage or hand-off failed and
// the notification should be redelivered.
func (r *Reconciler) Reconcile(ctx context.Context, transactionID string) error {
	log := r.logger.With(zap.String("transaction_id", transactionID))

	resp, err := r.client.GetTransactionDetails(ctx, transactionID)
	if err != nil || resp == nil {
		log.Error("Authorize.NET unknown error", zap.Error(err))
		r.count(ctx, MetricDropped)
		return nil
	}

	tx := resp.Transaction
	if tx == nil {
		log.Error("Authorize.NET: transaction data is missing")
		r.count(ctx, MetricDropped)
		return nil
	}

	if tx.TransactionStatus == refundStatus {
		return nil
	}

	description := ""
	if tx.Order != nil {
		description = tx.Order.Description
	}
	parts := strings.Split(description, "#")
	if len(parts) < 2 {
		log.Error("Authorize.NET: missing order GUID", zap.String("description", description))
		r.count(ctx, MetricDropped)
		return nil
	}
	if strings.Contains(parts[0], fullOrderPrefix) {
		return nil
	}

	guid, err := uuid.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		log.Error("Authorize.NET: invalid order GUID", zap.String("order_guid", parts[1]), zap.Error(err))
		r.count(ctx, MetricDropped)
		return nil
	}

	order, err := r.orders.GetByGUID(ctx, guid.String())
	if err != nil {
		return fmt.Errorf("get order by guid %s: %w", guid, err)
	}
	if order == nil {
		log.Error("Authorize.NET: order cannot be loaded", zap.String("order_guid", guid.String()))
		r.count(ctx, MetricDropped)
		return nil
	}

	payments, err := r.recurring.SearchByInitialOrder(ctx, order.OrderID)
	if err != nil {
		return fmt.Errorf("search recurring payments for order %s: %w", order.OrderID, err)
	}

	var errs []error
	for _, rp := range payments {
		var err error
		if resp.Messages.IsOk() {
			err = r.reconcileCycle(ctx, rp, *order, tx, transactionID)
		} else {
			err = r.reconcileFailure(ctx, rp, *order, resp.Messages.First(), transactionID)
		}
		if err != nil {
			log.Error("recurring payment not reconciled",
				zap.String("recurring_payment_id", rp.RecurringPaymentID), zap.Error(err))
			errs = append(errs, fmt.Errorf("recurring payment %s: %w", rp.RecurringPaymentID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) reconcileCycle(ctx context.Context, rp recurring.Payment, order orders.Order, tx *anet.TransactionDetails, transactionID string) error {
	seen, err := r.recordedTransactionIDs(ctx, rp)
	if err != nil {
		return err
	}
	if seen[transactionID] {
		r.count(ctx, MetricSkippedDuplicate)
		return nil
	}

	claimed, err := r.claims.Claim(ctx, rp.RecurringPaymentID, transactionID, order.OrderID)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		r.count(ctx, MetricSkippedDuplicate)
		return nil
	}
	key := idempotency.Key(rp.RecurringPaymentID, transactionID)

	status := orders.PaymentStatusPaid
	if tx.TransactionType == anet.TransactionTypeAuthOnly {
		status = orders.PaymentStatusAuthorized
	}

	outcome := outcomeAdvanced
	if len(rp.History) == 0 {
		err = r.recurring.RecordFirstPayment(ctx, rp, order.OrderID, status, transactionID)
		if err == nil {
			outcome = outcomeFirstCycle
		} else if errors.Is(err, recurring.ErrHistoryNotEmpty) {
			// another cycle was recorded first; this one is a subsequent cycle
			err = r.advance(ctx, rp, cycleResult(status, transactionID))
		}
	} else {
		err = r.advance(ctx, rp, cycleResult(status, transactionID))
	}

	if err != nil {
		r.fail(ctx, key, err)
		return err
	}
	r.done(ctx, key, outcome)
	r.count(ctx, MetricReconciled)
	return nil
}

func (r *Reconciler) reconcileFailure(ctx context.Context, rp recurring.Payment, order orders.Order, msg anet.Message, transactionID string) error {
	claimed, err := r.claims.Claim(ctx, rp.RecurringPaymentID, transactionID, order.OrderID)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		r.count(ctx, MetricSkippedDuplicate)
		return nil
	}
	key := idempotency.Key(rp.RecurringPaymentID, transactionID)

	result := recurring.CycleResult{
		AuthorizationTransactionID: transactionID,
		CaptureTransactionID:       transactionID,
		RecurringPaymentFailed:     true,
		Errors: []string{
			fmt.Sprintf("Authorize.Net Error: %s - %s (transactionId: %s)", msg.Code, msg.Text, transactionID),
		},
	}
	if err := r.advance(ctx, rp, result); err != nil {
		r.fail(ctx, key, err)
		return err
	}
	r.done(ctx, key, outcomeFailedCycle)
	r.count(ctx, MetricFailedCycle)
	return nil
}

// recordedTransactionIDs collects every authorization and capture id across the orders
// in the recurring payment's history.
func (r *Reconciler) recordedTransactionIDs(ctx context.Context, rp recurring.Payment) (map[string]bool, error) {
	seen := map[string]bool{}
	if len(rp.History) == 0 {
		return seen, nil
	}
	history, err := r.orders.GetByIDs(ctx, rp.OrderIDs())
	if err != nil {
		return nil, fmt.Errorf("load history orders: %w", err)
	}
	for _, o := range history {
		if o.AuthorizationTransactionID != "" {
			seen[o.AuthorizationTransactionID] = true
		}
		if o.CaptureTransactionID != "" {
			seen[o.CaptureTransactionID] = true
		}
	}
	return seen, nil
}

func (r *Reconciler) advance(ctx context.Context, rp recurring.Payment, result recurring.CycleResult) error {
	if err := r.advancer.ProcessNextRecurringPayment(ctx, rp, result); err != nil {
		return fmt.Errorf("process next recurring payment: %w", err)
	}
	return nil
}

func cycleResult(status orders.PaymentStatus, transactionID string) recurring.CycleResult {
	result := recurring.CycleResult{NewPaymentStatus: status}
	if status == orders.PaymentStatusAuthorized {
		result.AuthorizationTransactionID = transactionID
	} else {
		result.CaptureTransactionID = transactionID
	}
	return result
}

func (r *Reconciler) done(ctx context.Context, key, outcome string) {
	if err := r.claims.MarkDone(ctx, key, outcome); err != nil {
		r.logger.Warn("mark claim done failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Reconciler) fail(ctx context.Context, key string, cause error) {
	if err := r.claims.MarkFailed(ctx, key, cause.Error()); err != nil {
		r.logger.Warn("mark claim as failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Reconciler) count(ctx context.Context, name string) {
	if r.metrics == nil {
		return
	}
	if err := r.metrics.Count(ctx, name, nil); err != nil {
		r.logger.Warn("put metric failed", zap.String("metric", name), zap.Error(err))
	}
}
