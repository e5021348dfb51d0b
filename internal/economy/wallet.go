// Package economy holds reference agents for the settlement engine: one of
// each kind the simulation has, in both balance-contract shapes.
package economy

import (
	"errors"
	"fmt"
	"sync"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

// ErrInactive is returned by agents that have been wound up.
var ErrInactive = errors.New("agent is inactive")

// wallet holds per-currency cash with concurrency safety.
type wallet struct {
	mu        sync.Mutex
	balances  map[model.Currency]int64
	inactive  bool
	overdraft bool
}

func newWallet(initial int64) *wallet {
	w := &wallet{balances: make(map[model.Currency]int64)}
	if initial != 0 {
		w.balances[model.DefaultCurrency] = initial
	}
	return w
}

func (w *wallet) balance(currency model.Currency) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[currency]
}

func (w *wallet) currencies() []model.Currency {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Currency, 0, len(w.balances))
	for c := range w.balances {
		out = append(out, c)
	}
	return out
}

func (w *wallet) snapshot() map[model.Currency]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[model.Currency]int64, len(w.balances))
	for c, v := range w.balances {
		out[c] = v
	}
	return out
}

func (w *wallet) deposit(amount int64, currency model.Currency) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inactive {
		return ErrInactive
	}
	if amount <= 0 {
		return agent.ErrNonPositiveAmount
	}
	w.balances[currency] += amount
	return nil
}

func (w *wallet) withdraw(amount int64, currency model.Currency) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if amount <= 0 {
		return agent.ErrNonPositiveAmount
	}
	if !w.overdraft && w.balances[currency] < amount {
		return fmt.Errorf("withdraw %d %s of %d: %w", amount, currency, w.balances[currency], agent.ErrInsufficientFunds)
	}
	w.balances[currency] -= amount
	return nil
}

func (w *wallet) deactivate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inactive = true
}

// holdings is the non-cash side of an agent.
type holdings struct {
	mu        sync.Mutex
	portfolio model.Portfolio
}

func (h *holdings) Portfolio() model.Portfolio {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.portfolio.Clone()
}

func (h *holdings) ReceivePortfolio(p model.Portfolio) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.portfolio.Assets = append(h.portfolio.Assets, p.Clone().Assets...)
	return nil
}

func (h *holdings) ClearPortfolio() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.portfolio = model.Portfolio{}
}

// AddAsset gives the agent a holding.
func (h *holdings) AddAsset(a model.PortfolioAsset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.portfolio.Assets = append(h.portfolio.Assets, a)
}
