package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-style currency code.
type Currency string

// DefaultCurrency is used wherever a caller does not name one.
const DefaultCurrency Currency = "USD"

// AgentID identifies an agent. The empty string is the null identity.
type AgentID string

const (
	// CentralBankID is the only identity allowed to mint or burn money.
	CentralBankID AgentID = "CENTRAL_BANK"
	// GovernmentID is the default escheatment recipient.
	GovernmentID AgentID = "GOVERNMENT"
)

// IsNull reports whether the ID is unset.
func (id AgentID) IsNull() bool { return id == "" }

// Money is an integer amount of minor units ("pennies") in one currency.
type Money struct {
	Currency Currency `json:"currency" yaml:"currency"`
	Amount   int64    `json:"amount" yaml:"amount"`
}

// NewMoney builds a Money value, defaulting the currency.
func NewMoney(amount int64, currency Currency) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Currency: currency, Amount: amount}
}

// Major returns the amount in major units, e.g. 1234 pennies -> 12.34.
func (m Money) Major() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Major().StringFixed(2), m.Currency)
}

// PenniesFromMajor converts a major-unit decimal string ("12.34") into pennies.
// More than two fractional digits is rejected rather than rounded.
func PenniesFromMajor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	p := d.Shift(2)
	if !p.Equal(p.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has sub-penny precision", s)
	}
	return p.IntPart(), nil
}
