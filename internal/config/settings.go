package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TransactMode is the processor transaction mode used for new payments.
type TransactMode int

const (
	TransactModeAuthorize           TransactMode = 1
	TransactModeAuthorizeAndCapture TransactMode = 2
)

func (m TransactMode) String() string {
	switch m {
	case TransactModeAuthorize:
		return "Authorize"
	case TransactModeAuthorizeAndCapture:
		return "AuthorizeAndCapture"
	default:
		return fmt.Sprintf("TransactMode(%d)", int(m))
	}
}

// ParseTransactMode accepts a mode name or its numeric value. Unknown input yields
// an invalid mode rather than an error; the request builder rejects it.
func ParseTransactMode(s string) TransactMode {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "authorize":
		return TransactModeAuthorize
	case "authorizeandcapture", "authorize_and_capture":
		return TransactModeAuthorizeAndCapture
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return TransactMode(n)
}

// Settings holds the gateway settings plus the deployment wiring.
type Settings struct {
	UseSandbox                  bool
	TransactMode                TransactMode
	LoginID                     string `validate:"required"`
	TransactionKey              string `validate:"required"`
	UseShippingAddressAsBilling bool
	AdditionalFee               decimal.Decimal
	AdditionalFeePercentage     bool
	CurrencyCode                string `validate:"required,len=3"`

	OrdersTable            string `validate:"required"`
	RecurringTable         string `validate:"required"`
	IdempotencyTable       string `validate:"required"`
	ReconcileQueueURL      string
	RecurringCycleQueueURL string `validate:"required"`
	MetricsNamespace       string

	// ClaimLease bounds how long a reconcile claim stays with an invocation that never
	// finished. Keep it above the worker timeout and at most the queue's visibility timeout.
	ClaimLease time.Duration `validate:"gt=0"`
}

// Defaults mirrors a fresh install: sandbox on, authorize only.
func Defaults() Settings {
	return Settings{
		UseSandbox:       true,
		TransactMode:     TransactModeAuthorize,
		AdditionalFee:    decimal.Zero,
		CurrencyCode:     "USD",
		MetricsNamespace: "AuthorizeNetGateway",
		ClaimLease:       15 * time.Minute,
	}
}

// Load reads settings from the environment on top of Defaults and validates them.
func Load() (Settings, error) {
	s := Defaults()

	if v, ok := os.LookupEnv("AUTHORIZENET_USE_SANDBOX"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("AUTHORIZENET_USE_SANDBOX: %w", err)
		}
		s.UseSandbox = b
	}
	if v := os.Getenv("AUTHORIZENET_TRANSACT_MODE"); v != "" {
		s.TransactMode = ParseTransactMode(v)
	}
	s.LoginID = os.Getenv("AUTHORIZENET_LOGIN_ID")
	s.TransactionKey = os.Getenv("AUTHORIZENET_TRANSACTION_KEY")
	if v := os.Getenv("AUTHORIZENET_USE_SHIPPING_AS_BILLING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("AUTHORIZENET_USE_SHIPPING_AS_BILLING: %w", err)
		}
		s.UseShippingAddressAsBilling = b
	}
	if v := os.Getenv("AUTHORIZENET_ADDITIONAL_FEE"); v != "" {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			return s, fmt.Errorf("AUTHORIZENET_ADDITIONAL_FEE: %w", err)
		}
		s.AdditionalFee = fee
	}
	if v := os.Getenv("AUTHORIZENET_ADDITIONAL_FEE_PERCENTAGE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("AUTHORIZENET_ADDITIONAL_FEE_PERCENTAGE: %w", err)
		}
		s.AdditionalFeePercentage = b
	}
	if v := os.Getenv("PRIMARY_CURRENCY_CODE"); v != "" {
		s.CurrencyCode = strings.ToUpper(v)
	}

	s.OrdersTable = os.Getenv("ORDERS_TABLE")
	s.RecurringTable = os.Getenv("RECURRING_PAYMENTS_TABLE")
	s.IdempotencyTable = os.Getenv("IDEMPOTENCY_TABLE")
	s.ReconcileQueueURL = os.Getenv("RECONCILE_QUEUE_URL")
	s.RecurringCycleQueueURL = os.Getenv("RECURRING_CYCLE_QUEUE_URL")
	if v := os.Getenv("METRICS_NAMESPACE"); v != "" {
		s.MetricsNamespace = v
	}
	if v := os.Getenv("CLAIM_LEASE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("CLAIM_LEASE: %w", err)
		}
		s.ClaimLease = d
	}

	if err := validatorv10.New().Struct(s); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
