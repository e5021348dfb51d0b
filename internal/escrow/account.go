// Package escrow parks the liquid position of an exiting agent until it has
// been distributed to heirs, creditors or the state.
package escrow

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"SettlementEngine/internal/model"
)

// Status is the lifecycle state of an escrow account.
//
//	OPEN -> PROCESSING -> CLOSED | CLOSED_WITH_LEAK
//	OPEN -> CLOSED | CLOSED_WITH_LEAK
type Status string

const (
	StatusOpen           Status = "OPEN"
	StatusProcessing     Status = "PROCESSING"
	StatusClosed         Status = "CLOSED"
	StatusClosedWithLeak Status = "CLOSED_WITH_LEAK"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusClosedWithLeak
}

var (
	ErrAccountExists     = errors.New("escrow account already open")
	ErrAccountNotFound   = errors.New("escrow account not found")
	ErrInvalidTransition = errors.New("invalid escrow transition")
	ErrOverdraft         = errors.New("amount exceeds escrow cash")
	ErrNonZeroCash       = errors.New("escrow cash not zero")
)

// Account is the escrow record of one exiting agent.
type Account struct {
	deceasedID    model.AgentID
	cash          map[model.Currency]int64
	portfolio     model.Portfolio
	status        Status
	heirID        model.AgentID
	isEscheatment bool
	createdAt     int64
	closedAt      int64
	writtenOff    map[model.Currency]int64
}

func (a *Account) DeceasedID() model.AgentID { return a.deceasedID }
func (a *Account) Status() Status            { return a.status }
func (a *Account) IsEscheatment() bool       { return a.isEscheatment }
func (a *Account) CreatedAt() int64          { return a.createdAt }
func (a *Account) ClosedAt() int64           { return a.closedAt }

// Cash returns parked cash in one currency.
func (a *Account) Cash(currency model.Currency) int64 { return a.cash[currency] }

// EscrowCash returns parked cash in the default currency.
func (a *Account) EscrowCash() int64 { return a.cash[model.DefaultCurrency] }

// Currencies lists the currencies with cash still parked, sorted.
func (a *Account) Currencies() []model.Currency {
	out := make([]model.Currency, 0, len(a.cash))
	for c, v := range a.cash {
		if v != 0 {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// WrittenOff returns what was written off in one currency.
func (a *Account) WrittenOff(currency model.Currency) int64 { return a.writtenOff[currency] }

// WrittenOffAll returns every written-off amount by currency.
func (a *Account) WrittenOffAll() map[model.Currency]int64 { return maps.Clone(a.writtenOff) }

// HeirID returns the resolved heir, if any.
func (a *Account) HeirID() (model.AgentID, bool) {
	return a.heirID, !a.heirID.IsNull()
}

// EscrowPortfolio returns a copy of the undelivered portfolio.
func (a *Account) EscrowPortfolio() model.Portfolio { return a.portfolio.Clone() }

// BeginProcessing moves an OPEN (or already PROCESSING) account to PROCESSING.
func (a *Account) BeginProcessing() error {
	switch a.status {
	case StatusOpen, StatusProcessing:
		a.status = StatusProcessing
		return nil
	default:
		return fmt.Errorf("%s -> %s: %w", a.status, StatusProcessing, ErrInvalidTransition)
	}
}

// Debit takes amount out of escrow cash. It never lets cash go negative.
func (a *Account) Debit(amount int64, currency model.Currency) error {
	if a.status.Terminal() {
		return fmt.Errorf("debit closed account: %w", ErrInvalidTransition)
	}
	if amount > a.cash[currency] {
		return fmt.Errorf("debit %d %s of %d: %w", amount, currency, a.cash[currency], ErrOverdraft)
	}
	a.cash[currency] -= amount
	return nil
}

// TakePortfolio hands the portfolio out and empties escrow holdings.
func (a *Account) TakePortfolio() model.Portfolio {
	p := a.portfolio
	a.portfolio = model.Portfolio{}
	return p
}

// RestorePortfolio puts a portfolio back after a failed delivery.
func (a *Account) RestorePortfolio(p model.Portfolio) {
	a.portfolio = p
}

// Close marks the account CLOSED. It refuses while cash or portfolio remain.
func (a *Account) Close(tick int64) error {
	if a.status.Terminal() {
		return fmt.Errorf("%s -> %s: %w", a.status, StatusClosed, ErrInvalidTransition)
	}
	if len(a.Currencies()) > 0 || !a.portfolio.Empty() {
		return ErrNonZeroCash
	}
	a.status = StatusClosed
	a.closedAt = tick
	return nil
}

// CloseWithLeak writes off whatever is left and marks the account
// CLOSED_WITH_LEAK. It returns the cash per currency and the number of
// assets written off.
func (a *Account) CloseWithLeak(tick int64) (cash map[model.Currency]int64, assets int, err error) {
	if a.status.Terminal() {
		return nil, 0, fmt.Errorf("%s -> %s: %w", a.status, StatusClosedWithLeak, ErrInvalidTransition)
	}
	cash, assets = make(map[model.Currency]int64), len(a.portfolio.Assets)
	for c, v := range a.cash {
		if v != 0 {
			cash[c] = v
			a.writtenOff[c] += v
		}
	}
	a.cash = make(map[model.Currency]int64)
	a.portfolio = model.Portfolio{}
	a.status = StatusClosedWithLeak
	a.closedAt = tick
	return cash, assets, nil
}
