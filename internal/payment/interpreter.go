package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imrishuroy/authorizenet-gateway/internal/anet"
)

// OutcomeKind is the closed set of results of one processor call.
type OutcomeKind int

const (
	OutcomeApproved OutcomeKind = iota + 1
	OutcomeDeclined
	OutcomeError
	OutcomeDuplicate
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApproved:
		return "approved"
	case OutcomeDeclined:
		return "declined"
	case OutcomeError:
		return "error"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// DuplicateMarker starts the result text the processor returns for a resubmitted
// transaction. Such responses are absorbed rather than reported.
const DuplicateMarker = "A duplicate transaction"

const unknownError = "Authorize.NET unknown error"

// Outcome is the interpreted result of a createTransaction call.
type Outcome struct {
	Kind          OutcomeKind
	TransactionID string
	AuthCode      string
	AvsResult     string
	ResponseCode  string
	// Description is the first transaction message, used to build result text.
	Description string
	Errors      []string
}

// ResultText is the human-readable approval line stored on the order.
func (o Outcome) ResultText() string {
	return fmt.Sprintf("Approved (%s: %s)", o.ResponseCode, o.Description)
}

// TransactionCode joins the transaction id and auth code the way the host stores them.
func (o Outcome) TransactionCode() string {
	return o.TransactionID + "," + o.AuthCode
}

// Interpret maps a processor response, or the error the client returned instead, to an
// Outcome. Transaction-level error lists win over result codes, and response codes are
// only read when the result code is Ok.
func Interpret(resp *anet.CreateTransactionResponse, err error) Outcome {
	if resp != nil {
		tr := resp.TransactionResponse
		if tr != nil && len(tr.Errors) > 0 {
			msgs := make([]string, 0, len(tr.Errors))
			for _, e := range tr.Errors {
				msgs = append(msgs, fmt.Sprintf("Error #%s: %s", e.ErrorCode, e.ErrorText))
			}
			return Outcome{Kind: OutcomeError, Errors: msgs}
		}

		if tr != nil && resp.Messages.IsOk() {
			description := ""
			if len(tr.Messages) > 0 {
				description = tr.Messages[0].Description
			}
			switch tr.ResponseCode {
			case "1":
				return Outcome{
					Kind:          OutcomeApproved,
					TransactionID: tr.TransID,
					AuthCode:      tr.AuthCode,
					AvsResult:     tr.AvsResultCode,
					ResponseCode:  tr.ResponseCode,
					Description:   description,
				}
			case "2":
				msg := strings.TrimRight(fmt.Sprintf("Declined (%s: %s", tr.ResponseCode, description), ": ") + ")"
				return Outcome{Kind: OutcomeDeclined, ResponseCode: tr.ResponseCode, Errors: []string{msg}}
			}
		}

		if resp.Messages.ResultCode == anet.ResultCodeError && len(resp.Messages.Message) > 0 {
			return errorOutcome(resp.Messages.First())
		}
		return fallback(resp.Messages.First().Text)
	}

	var apiErr *anet.APIError
	if errors.As(err, &apiErr) && len(apiErr.Messages.Message) > 0 {
		return errorOutcome(apiErr.Messages.First())
	}
	if err != nil {
		return fallback(err.Error())
	}
	return fallback("")
}

func errorOutcome(m anet.Message) Outcome {
	return Outcome{Kind: OutcomeError, Errors: []string{fmt.Sprintf("Error #%s: %s", m.Code, m.Text)}}
}

// fallback handles responses without a structured answer.
func fallback(text string) Outcome {
	if strings.HasPrefix(text, DuplicateMarker) {
		return Outcome{Kind: OutcomeDuplicate}
	}
	if text == "" {
		return Outcome{Kind: OutcomeError, Errors: []string{unknownError}}
	}
	return Outcome{Kind: OutcomeError, Errors: []string{fmt.Sprintf("%s (%s)", unknownError, text)}}
}
