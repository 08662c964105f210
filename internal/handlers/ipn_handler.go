package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imrishuroy/authorizenet-gateway/internal/validation"
	"go.uber.org/zap"
)

// IPNPath is where the processor's silent post is configured to go.
const IPNPath = "/Plugins/AuthorizeNet/IPNHandler"

// RegisterIPNRoutes registers the processor notification endpoint. Only approved
// transactions (x_response_code "1") are reconciled. The endpoint always answers 200 with
// an empty body; redelivery is the sender's business.
func RegisterIPNRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.POST(IPNPath, func(c *gin.Context) {
		defer c.String(http.StatusOK, "")

		var form validation.IPNForm
		if err := c.ShouldBind(&form); err != nil {
			cfg.Logger.Warn("unreadable notification", zap.Error(err))
			return
		}
		if form.ResponseCode != "1" || form.TransactionID == "" {
			return
		}

		correlationID := c.GetHeader("X-Request-Id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		if err := cfg.Dispatcher.Dispatch(c.Request.Context(), form.TransactionID, correlationID); err != nil {
			cfg.Logger.Error("notification not dispatched",
				zap.String("transaction_id", form.TransactionID),
				zap.String("correlation_id", correlationID),
				zap.Error(err))
		}
	})
}
