package escrow

import (
	"fmt"
	"slices"

	"SettlementEngine/internal/model"
)

// Opening describes what is lifted out of an agent when its escrow opens.
type Opening struct {
	DeceasedID model.AgentID
	Cash       map[model.Currency]int64
	Portfolio  model.Portfolio
	HeirID     model.AgentID
	Tick       int64
}

// Book is the table of escrow accounts owned by one engine.
type Book struct {
	accounts map[model.AgentID]*Account
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{accounts: make(map[model.AgentID]*Account)}
}

// Open records a new OPEN account. An account that already reached a
// terminal state is replaced; a live one is an error.
func (b *Book) Open(o Opening) (*Account, error) {
	if prev, ok := b.accounts[o.DeceasedID]; ok && !prev.status.Terminal() {
		return nil, fmt.Errorf("open escrow for %s: %w", o.DeceasedID, ErrAccountExists)
	}
	cash := make(map[model.Currency]int64, len(o.Cash))
	for c, v := range o.Cash {
		if c == "" {
			c = model.DefaultCurrency
		}
		cash[c] += v
	}
	a := &Account{
		deceasedID:    o.DeceasedID,
		cash:          cash,
		writtenOff:    make(map[model.Currency]int64),
		portfolio:     o.Portfolio.Clone(),
		status:        StatusOpen,
		heirID:        o.HeirID,
		isEscheatment: o.HeirID.IsNull(),
		createdAt:     o.Tick,
	}
	b.accounts[o.DeceasedID] = a
	return a, nil
}

// Get returns the account for a deceased agent.
func (b *Book) Get(id model.AgentID) (*Account, error) {
	a, ok := b.accounts[id]
	if !ok {
		return nil, fmt.Errorf("escrow for %s: %w", id, ErrAccountNotFound)
	}
	return a, nil
}

// TotalCash sums parked cash in one currency across every account.
func (b *Book) TotalCash(currency model.Currency) int64 {
	var total int64
	for _, a := range b.accounts {
		total += a.cash[currency]
	}
	return total
}

// Accounts returns all accounts ordered by deceased ID.
func (b *Book) Accounts() []*Account {
	ids := make([]model.AgentID, 0, len(b.accounts))
	for id := range b.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.accounts[id])
	}
	return out
}
