package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/imrishuroy/authorizenet-gateway/internal/orders"
	"github.com/imrishuroy/authorizenet-gateway/internal/payment"
	"github.com/imrishuroy/authorizenet-gateway/internal/recurring"
	"github.com/imrishuroy/authorizenet-gateway/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegisterPaymentRoutes registers the payment operations on stored orders. Processor
// failures come back as 402 with the collected messages; the order is left untouched.
func RegisterPaymentRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &paymentHandler{cfg: cfg, v: validation.New()}

	r.POST("/payments", h.processPayment)
	r.GET("/payments/fee", h.additionalFee)
	r.POST("/orders/:order_id/capture", h.capture)
	r.POST("/orders/:order_id/refund", h.refund)
	r.POST("/orders/:order_id/void", h.void)
	r.POST("/orders/:order_id/recurring", h.createRecurring)
	r.DELETE("/orders/:order_id/recurring", h.cancelRecurring)
}

type paymentHandler struct {
	cfg HandlerConfig
	v   *validatorv10.Validate
}

func (h *paymentHandler) processPayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.ProcessPaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	order, ok := h.loadOrder(c, req.OrderID)
	if !ok {
		return
	}
	if order.PaymentStatus != orders.PaymentStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "order_already_paid", "payment_status": order.PaymentStatus})
		return
	}

	customerIP := req.CustomerIP
	if customerIP == "" {
		customerIP = c.ClientIP()
	}
	result, err := h.cfg.Processor.ProcessPayment(ctx, payment.ProcessPaymentRequest{
		OrderGUID:  order.OrderGUID,
		OrderTotal: order.OrderTotal.Decimal,
		Card:       card(req.PaymentInfo),
		Customer:   payment.Customer{BillingAddress: req.BillingAddress, ShippingAddress: req.ShippingAddress},
		CustomerIP: customerIP,
	})
	if err != nil {
		h.cfg.Logger.Error("payment not processed", zap.String("order_id", order.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gateway_misconfigured"})
		return
	}
	if !result.Success() {
		c.JSON(http.StatusPaymentRequired, gin.H{"errors": result.Errors})
		return
	}
	if result.NewPaymentStatus == "" {
		// duplicate submission: the first one already settled the order
		c.JSON(http.StatusOK, result)
		return
	}

	upd := result.PaymentUpdate()
	upd.MaskedCreditCardNumber = maskCardNumber(req.PaymentInfo.CardNumber)
	upd.CardExpirationMonth = strconv.Itoa(req.PaymentInfo.ExpireMonth)
	upd.CardExpirationYear = strconv.Itoa(req.PaymentInfo.ExpireYear)
	if !h.apply(c, order.OrderID, orders.PaymentStatusPending, upd) {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *paymentHandler) capture(c *gin.Context) {
	order, ok := h.loadOrder(c, c.Param("order_id"))
	if !ok {
		return
	}
	if order.PaymentStatus != orders.PaymentStatusAuthorized {
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_authorized", "payment_status": order.PaymentStatus})
		return
	}

	result := h.cfg.Processor.Capture(c.Request.Context(), payment.CapturePaymentRequest{Order: *order})
	if !result.Success() {
		c.JSON(http.StatusPaymentRequired, gin.H{"errors": result.Errors})
		return
	}
	if result.NewPaymentStatus != "" && !h.apply(c, order.OrderID, order.PaymentStatus, result.PaymentUpdate()) {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *paymentHandler) refund(c *gin.Context) {
	var req validation.RefundRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	order, ok := h.loadOrder(c, c.Param("order_id"))
	if !ok {
		return
	}
	if order.PaymentStatus != orders.PaymentStatusPaid && order.PaymentStatus != orders.PaymentStatusPartiallyRefunded {
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_refundable", "payment_status": order.PaymentStatus})
		return
	}

	total := order.OrderTotal.Decimal
	refunded := order.RefundedAmount.Decimal
	remaining := total.Sub(refunded)
	if req.Amount.GreaterThan(remaining) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_exceeds_refundable", "refundable": remaining.StringFixed(2)})
		return
	}

	result := h.cfg.Processor.Refund(c.Request.Context(), payment.RefundPaymentRequest{
		Order:           *order,
		AmountToRefund:  req.Amount,
		IsPartialRefund: req.Amount.LessThan(remaining),
	})
	if !result.Success() {
		c.JSON(http.StatusPaymentRequired, gin.H{"errors": result.Errors})
		return
	}
	if result.NewPaymentStatus != "" {
		upd := orders.PaymentUpdate{Status: result.NewPaymentStatus}
		if result.RefundedAmount.IsPositive() {
			upd.RefundedAmount = refunded.Add(result.RefundedAmount)
		}
		if !h.apply(c, order.OrderID, order.PaymentStatus, upd) {
			return
		}
	}
	c.JSON(http.StatusOK, result)
}

func (h *paymentHandler) void(c *gin.Context) {
	order, ok := h.loadOrder(c, c.Param("order_id"))
	if !ok {
		return
	}
	if order.PaymentStatus != orders.PaymentStatusAuthorized && order.PaymentStatus != orders.PaymentStatusPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_voidable", "payment_status": order.PaymentStatus})
		return
	}

	result := h.cfg.Processor.Void(c.Request.Context(), payment.VoidPaymentRequest{Order: *order})
	if !result.Success() {
		c.JSON(http.StatusPaymentRequired, gin.H{"errors": result.Errors})
		return
	}
	if result.NewPaymentStatus != "" && !h.apply(c, order.OrderID, order.PaymentStatus, orders.PaymentUpdate{Status: result.NewPaymentStatus}) {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *paymentHandler) createRecurring(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.RecurringPaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	order, ok := h.loadOrder(c, c.Param("order_id"))
	if !ok {
		return
	}
	if order.SubscriptionTransactionID != "" {
		c.JSON(http.StatusConflict, gin.H{"error": "subscription_exists", "subscription_id": order.SubscriptionTransactionID})
		return
	}

	period := recurring.CyclePeriod(req.CyclePeriod)
	result, err := h.cfg.Processor.ProcessRecurringPayment(ctx, payment.ProcessPaymentRequest{
		OrderGUID:            order.OrderGUID,
		OrderTotal:           order.OrderTotal.Decimal,
		Card:                 card(req.PaymentInfo),
		Customer:             payment.Customer{BillingAddress: req.BillingAddress, ShippingAddress: req.ShippingAddress},
		RecurringCycleLength: req.CycleLength,
		RecurringCyclePeriod: period,
		RecurringTotalCycles: req.TotalCycles,
	})
	if err != nil {
		h.cfg.Logger.Error("subscription not created", zap.String("order_id", order.OrderID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !result.Success() {
		c.JSON(http.StatusPaymentRequired, gin.H{"errors": result.Errors})
		return
	}

	upd := result.PaymentUpdate()
	upd.MaskedCreditCardNumber = maskCardNumber(req.PaymentInfo.CardNumber)
	upd.CardExpirationMonth = strconv.Itoa(req.PaymentInfo.ExpireMonth)
	upd.CardExpirationYear = strconv.Itoa(req.PaymentInfo.ExpireYear)
	if !h.apply(c, order.OrderID, "", upd) {
		return
	}

	rp := recurring.Payment{
		RecurringPaymentID: uuid.NewString(),
		InitialOrderID:     order.OrderID,
		CycleLength:        req.CycleLength,
		CyclePeriod:        period,
		TotalCycles:        req.TotalCycles,
		IsActive:           true,
	}
	if err := h.cfg.Recurring.Create(ctx, rp); err != nil {
		h.cfg.Logger.Error("recurring payment not stored",
			zap.String("order_id", order.OrderID),
			zap.String("subscription_id", result.SubscriptionTransactionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recurring_payment_not_stored"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"recurring_payment_id": rp.RecurringPaymentID, "result": result})
}

func (h *paymentHandler) cancelRecurring(c *gin.Context) {
	order, ok := h.loadOrder(c, c.Param("order_id"))
	if !ok {
		return
	}
	if order.SubscriptionTransactionID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no_subscription"})
		return
	}

	result := h.cfg.Processor.CancelRecurringPayment(c.Request.Context(), payment.CancelRecurringPaymentRequest{Order: *order})
	if !result.Success() {
		c.JSON(http.StatusPaymentRequired, gin.H{"errors": result.Errors})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *paymentHandler) additionalFee(c *gin.Context) {
	subtotal, err := decimal.NewFromString(c.Query("subtotal"))
	if err != nil || subtotal.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subtotal"})
		return
	}
	fee := h.cfg.Processor.AdditionalHandlingFee(subtotal)
	c.JSON(http.StatusOK, gin.H{"subtotal": subtotal.StringFixed(2), "fee": fee.StringFixed(2)})
}

// loadOrder writes 404 or 500 and returns false when the order cannot be used.
func (h *paymentHandler) loadOrder(c *gin.Context, orderID string) (*orders.Order, bool) {
	order, err := h.cfg.Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		h.cfg.Logger.Error("order lookup failed", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed"})
		return nil, false
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found", "order_id": orderID})
		return nil, false
	}
	return order, true
}

// apply persists a payment update guarded by the status the handler read.
func (h *paymentHandler) apply(c *gin.Context, orderID string, expected orders.PaymentStatus, upd orders.PaymentUpdate) bool {
	err := h.cfg.Orders.ApplyPayment(c.Request.Context(), orderID, expected, upd)
	if err == nil {
		return true
	}
	if errors.Is(err, orders.ErrStatusMismatch) {
		c.JSON(http.StatusConflict, gin.H{"error": "order_changed_concurrently"})
		return false
	}
	h.cfg.Logger.Error("payment applied at processor but not stored",
		zap.String("order_id", orderID), zap.String("new_status", string(upd.Status)), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "order_update_failed"})
	return false
}

func card(p validation.PaymentInfo) payment.Card {
	return payment.Card{
		Name:        p.CardholderName,
		Number:      p.CardNumber,
		ExpireMonth: p.ExpireMonth,
		ExpireYear:  p.ExpireYear,
		CVV2:        p.CardCode,
	}
}

// maskCardNumber keeps the last four digits.
func maskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
