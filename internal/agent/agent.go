// Package agent defines the balance contract every settlement participant
// exposes, and adapts the two agent shapes found in the simulation onto it.
package agent

import (
	"errors"
	"fmt"
	"slices"

	"SettlementEngine/internal/model"
)

var (
	// ErrUnsupportedAgent is returned by Adapt for values exposing neither shape.
	ErrUnsupportedAgent = errors.New("agent does not expose a balance contract")
	// ErrNilAgent is returned by Adapt for a nil value.
	ErrNilAgent = errors.New("nil agent")
	// ErrInsufficientFunds is what agents return from a withdraw they cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNonPositiveAmount guards Deposit and Withdraw against amount <= 0.
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// PropertyStyle is an agent that exposes its wallet directly and moves money
// through Deposit / Withdraw.
type PropertyStyle interface {
	ID() model.AgentID
	Balances() map[model.Currency]int64
	Deposit(amount int64, currency model.Currency) error
	Withdraw(amount int64, currency model.Currency) error
}

// MethodStyle is an agent that reads its balance through a getter and moves
// money through DepositFunds / WithdrawFunds.
type MethodStyle interface {
	ID() model.AgentID
	GetBalance(currency model.Currency) int64
	DepositFunds(amount int64, currency model.Currency) error
	WithdrawFunds(amount int64, currency model.Currency) error
}

// Account is the single view the settlement engine has of an agent.
// It can only be obtained through Adapt.
type Account interface {
	ID() model.AgentID
	Balance(currency model.Currency) int64
	// Currencies lists the currencies the agent holds a nonzero balance in.
	Currencies() []model.Currency
	Deposit(amount int64, currency model.Currency) error
	Withdraw(amount int64, currency model.Currency) error
	// Underlying returns the wrapped agent for capability lookups.
	Underlying() any

	sealed()
}

// Adapt selects the adapter for x once. MethodStyle wins when x satisfies both.
func Adapt(x any) (Account, error) {
	switch v := x.(type) {
	case nil:
		return nil, ErrNilAgent
	case Account:
		return v, nil
	case MethodStyle:
		return &methodAdapter{inner: v}, nil
	case PropertyStyle:
		return &propertyAdapter{inner: v}, nil
	default:
		return nil, fmt.Errorf("adapt %T: %w", x, ErrUnsupportedAgent)
	}
}

// MustAdapt is Adapt for fixtures and wiring code where failure is a bug.
func MustAdapt(x any) Account {
	a, err := Adapt(x)
	if err != nil {
		panic(err)
	}
	return a
}

// As looks up an optional capability on the agent behind a.
func As[T any](a Account) (T, bool) {
	var zero T
	if a == nil {
		return zero, false
	}
	v, ok := a.Underlying().(T)
	return v, ok
}

// IsCentralBank reports whether a carries the monetary authority identity.
func IsCentralBank(a Account) bool {
	return a != nil && a.ID() == model.CentralBankID
}

type propertyAdapter struct {
	inner PropertyStyle
}

func (p *propertyAdapter) ID() model.AgentID { return p.inner.ID() }

func (p *propertyAdapter) Balance(currency model.Currency) int64 {
	return p.inner.Balances()[currency]
}

func (p *propertyAdapter) Currencies() []model.Currency {
	var out []model.Currency
	for c, v := range p.inner.Balances() {
		if v != 0 {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

func (p *propertyAdapter) Deposit(amount int64, currency model.Currency) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	return p.inner.Deposit(amount, currency)
}

func (p *propertyAdapter) Withdraw(amount int64, currency model.Currency) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	return p.inner.Withdraw(amount, currency)
}

func (p *propertyAdapter) Underlying() any { return p.inner }
func (p *propertyAdapter) sealed()         {}

type methodAdapter struct {
	inner MethodStyle
}

func (m *methodAdapter) ID() model.AgentID { return m.inner.ID() }

func (m *methodAdapter) Balance(currency model.Currency) int64 {
	return m.inner.GetBalance(currency)
}

// Currencies asks the agent when it is a CurrencyLister. Otherwise only the
// default currency is visible through the getter.
func (m *methodAdapter) Currencies() []model.Currency {
	var out []model.Currency
	if cl, ok := m.inner.(CurrencyLister); ok {
		for _, c := range cl.Currencies() {
			if m.inner.GetBalance(c) != 0 && !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
		slices.Sort(out)
		return out
	}
	if m.inner.GetBalance(model.DefaultCurrency) != 0 {
		out = append(out, model.DefaultCurrency)
	}
	return out
}

func (m *methodAdapter) Deposit(amount int64, currency model.Currency) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	return m.inner.DepositFunds(amount, currency)
}

func (m *methodAdapter) Withdraw(amount int64, currency model.Currency) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	return m.inner.WithdrawFunds(amount, currency)
}

func (m *methodAdapter) Underlying() any { return m.inner }
func (m *methodAdapter) sealed()         {}
