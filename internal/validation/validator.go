package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// decimal.Decimal is a struct, so amount rules are checked at struct level.
	v.RegisterStructValidation(refundStructValidation, RefundRequest{})

	return v
}

// refundStructValidation requires a positive amount with at most two decimals.
func refundStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(RefundRequest)

	if !req.Amount.IsPositive() {
		sl.ReportError(req.Amount, "amount", "Amount", "gt", "0")
		return
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		sl.ReportError(req.Amount, "amount", "Amount", "max_decimals", "2")
	}
}
