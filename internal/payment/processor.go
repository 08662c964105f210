package payment

import (
	"context"
	"fmt"

	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
	"github.com/imrishuroy/authorizenet-gateway/internal/config"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Processor runs the single-shot payment operations against the processor. Per-call
// failures are collected on the result; only configuration errors are returned.
type Processor struct {
	client   anet.Client
	builder  *RequestBuilder
	settings config.Settings
	logger   *zap.Logger
}

func NewProcessor(client anet.Client, settings config.Settings, logger *zap.Logger) *Processor {
	return &Processor{
		client:   client,
		builder:  NewRequestBuilder(settings),
		settings: settings,
		logger:   logger,
	}
}

// ProcessPayment authorizes, or authorizes and captures, a new order.
func (p *Processor) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResult, error) {
	result := &ProcessPaymentResult{}

	txReq, err := p.builder.Payment(req)
	if err != nil {
		return nil, err
	}

	outcome := Interpret(p.client.CreateTransaction(ctx, txReq))
	if !p.collect(outcome, "process payment", req.OrderGUID, result.AddError) {
		return result, nil
	}

	switch p.settings.TransactMode {
	case config.TransactModeAuthorize:
		result.AuthorizationTransactionID = outcome.TransactionID
		result.AuthorizationTransactionCode = outcome.TransactionCode()
		result.NewPaymentStatus = orders.PaymentStatusAuthorized
	case config.TransactModeAuthorizeAndCapture:
		result.CaptureTransactionID = outcome.TransactionCode()
		result.NewPaymentStatus = orders.PaymentStatusPaid
	}
	result.AuthorizationTransactionResult = outcome.ResultText()
	result.AvsResult = outcome.AvsResult
	return result, nil
}

// Capture settles a previously authorized order.
func (p *Processor) Capture(ctx context.Context, req CapturePaymentRequest) *CapturePaymentResult {
	result := &CapturePaymentResult{}

	outcome := Interpret(p.client.CreateTransaction(ctx, p.builder.Capture(req.Order)))
	if !p.collect(outcome, "capture", req.Order.OrderGUID, result.AddError) {
		return result
	}

	result.CaptureTransactionID = outcome.TransactionCode()
	result.CaptureTransactionResult = outcome.ResultText()
	result.NewPaymentStatus = orders.PaymentStatusPaid
	return result
}

// Refund returns money to the card. A capture that has not settled yet cannot be refunded:
// a full refund is turned into a void and a partial one is rejected.
func (p *Processor) Refund(ctx context.Context, req RefundPaymentRequest) *RefundPaymentResult {
	result := &RefundPaymentResult{}

	lastFour := lastFourDigits(req.Order.MaskedCreditCardNumber)
	if lastFour == "" {
		result.AddError("Last four digits of Credit Card Not Available")
		return result
	}

	transID := referenceTransactionID(req.Order)
	details, err := p.client.GetTransactionDetails(ctx, transID)
	switch {
	case err != nil:
		p.logger.Warn("transaction details unavailable, attempting refund",
			zap.String("transaction_id", transID), zap.Error(err))
	case details != nil && details.Transaction != nil && details.Transaction.TransactionStatus == anet.TransactionStatusCapturedPendingSettlement:
		if req.IsPartialRefund {
			result.AddError("Partial refund is not available until the transaction is settled. Try again later or refund the full amount")
			return result
		}
		outcome := Interpret(p.client.CreateTransaction(ctx, p.builder.Void(req.Order, lastFour)))
		if p.collect(outcome, "void unsettled capture", req.Order.OrderGUID, result.AddError) {
			result.NewPaymentStatus = orders.PaymentStatusVoided
		}
		return result
	}

	outcome := Interpret(p.client.CreateTransaction(ctx, p.builder.Refund(req.Order, req.AmountToRefund, lastFour)))
	if !p.collect(outcome, "refund", req.Order.OrderGUID, result.AddError) {
		return result
	}

	result.RefundedAmount = req.AmountToRefund.Round(2)
	if req.IsPartialRefund {
		result.NewPaymentStatus = orders.PaymentStatusPartiallyRefunded
	} else {
		result.NewPaymentStatus = orders.PaymentStatusRefunded
	}
	return result
}

// Void cancels an authorization or an unsettled capture.
func (p *Processor) Void(ctx context.Context, req VoidPaymentRequest) *VoidPaymentResult {
	result := &VoidPaymentResult{}

	lastFour := lastFourDigits(req.Order.MaskedCreditCardNumber)
	if lastFour == "" {
		result.AddError("Last four digits of Credit Card Not Available")
		return result
	}

	outcome := Interpret(p.client.CreateTransaction(ctx, p.builder.Void(req.Order, lastFour)))
	if !p.collect(outcome, "void", req.Order.OrderGUID, result.AddError) {
		return result
	}
	result.NewPaymentStatus = orders.PaymentStatusVoided
	return result
}

// ProcessRecurringPayment creates an automatic recurring billing subscription. Cycles are
// charged by the processor and reported back through notifications.
func (p *Processor) ProcessRecurringPayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResult, error) {
	result := &ProcessPaymentResult{}

	subReq, err := p.builder.Subscription(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateSubscription(ctx, subReq)
	switch {
	case err != nil:
		p.logger.Error("create subscription failed", zap.String("order_guid", req.OrderGUID), zap.Error(err))
		result.AddError(unknownError)
	case resp.Messages.IsOk():
		result.SubscriptionTransactionID = resp.SubscriptionID
		result.AuthorizationTransactionCode = resp.RefID
		result.AuthorizationTransactionResult = fmt.Sprintf("Approved (%s: %s)", resp.RefID, resp.SubscriptionID)
	default:
		for _, m := range resp.Messages.Message {
			result.AddError(fmt.Sprintf("Error processing recurring payment #%s: %s", m.Code, m.Text))
		}
	}
	return result, nil
}

// CancelRecurringPayment cancels the order's subscription.
func (p *Processor) CancelRecurringPayment(ctx context.Context, req CancelRecurringPaymentRequest) *CancelRecurringPaymentResult {
	result := &CancelRecurringPaymentResult{}

	resp, err := p.client.CancelSubscription(ctx, req.Order.SubscriptionTransactionID)
	switch {
	case err != nil:
		p.logger.Error("cancel subscription failed",
			zap.String("subscription_id", req.Order.SubscriptionTransactionID), zap.Error(err))
		result.AddError(unknownError)
	case resp.Messages.IsOk():
	default:
		for _, m := range resp.Messages.Message {
			result.AddError(fmt.Sprintf("Error processing recurring payment #%s: %s", m.Code, m.Text))
		}
	}
	return result
}

// AdditionalHandlingFee is the configured fee for a cart subtotal: a fixed amount, or a
// percentage of the subtotal.
func (p *Processor) AdditionalHandlingFee(subtotal decimal.Decimal) decimal.Decimal {
	fee := p.settings.AdditionalFee
	if fee.IsNegative() || fee.IsZero() {
		return decimal.Zero
	}
	if p.settings.AdditionalFeePercentage {
		return subtotal.Mul(fee).Div(decimal.NewFromInt(100)).Round(2)
	}
	return fee.Round(2)
}

// collect records the outcome's errors and reports whether the call was approved.
// Duplicates are neither errors nor approvals.
func (p *Processor) collect(o Outcome, op, orderGUID string, addError func(string)) bool {
	switch o.Kind {
	case OutcomeApproved:
		return true
	case OutcomeDuplicate:
		p.logger.Info("duplicate transaction absorbed", zap.String("operation", op), zap.String("order_guid", orderGUID))
		return false
	default:
		for _, e := range o.Errors {
			addError(e)
		}
		if o.Kind == OutcomeError {
			p.logger.Error("authorize.net call failed",
				zap.String("operation", op), zap.String("order_guid", orderGUID), zap.Strings("errors", o.Errors))
		}
		return false
	}
}
