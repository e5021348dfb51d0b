package settlement

import (
	"errors"
	"fmt"

	"SettlementEngine/internal/model"
)

// Reason classifies why a settlement operation did not complete.
type Reason string

const (
	ReasonInsufficientFunds  Reason = "INSUFFICIENT_FUNDS"
	ReasonNullAgent          Reason = "NULL_AGENT"
	ReasonTypeViolation      Reason = "TYPE_VIOLATION"
	ReasonBankUnavailable    Reason = "BANK_UNAVAILABLE"
	ReasonCreditRejected     Reason = "CREDIT_REJECTED"
	ReasonInvalidAmount      Reason = "INVALID_AMOUNT"
	ReasonInvalidMemo        Reason = "INVALID_MEMO"
	ReasonUnknownAgent       Reason = "UNKNOWN_AGENT"
	ReasonUnauthorizedCaller Reason = "UNAUTHORIZED_CALLER"
	ReasonUnreconciledLoss   Reason = "UNRECONCILED_LOSS"
)

// ErrValidation is matched by every ValidationError. These are caller bugs:
// nothing was mutated and the caller is expected to stop.
var ErrValidation = errors.New("settlement validation failed")

// ErrUnreconciledLoss is matched by failures whose compensation could not
// complete. Money has left one balance without arriving anywhere.
var ErrUnreconciledLoss = errors.New("unreconciled loss")

// ValidationError rejects a call before any balance is touched.
type ValidationError struct {
	Op      string
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Reason, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Failure is an expected business outcome (insufficient funds, a recipient
// that refused the deposit, ...). Balances are as they were before the call
// unless Reason is ReasonUnreconciledLoss.
type Failure struct {
	Op       string
	Reason   Reason
	DebitID  model.AgentID
	CreditID model.AgentID
	Amount   int64
	Err      error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s %s -> %s (%d): %s", f.Op, f.DebitID, f.CreditID, f.Amount, f.Reason)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is(err, ErrUnreconciledLoss) see through Failure.
func (f *Failure) Is(target error) bool {
	return target == ErrUnreconciledLoss && f.Reason == ReasonUnreconciledLoss
}

// ReasonOf extracts the Reason from a ValidationError or Failure.
func ReasonOf(err error) Reason {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}
