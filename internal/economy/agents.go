package economy

import (
	"sync"

	"SettlementEngine/internal/model"
)

// Household exposes its wallet directly (property shape).
type Household struct {
	holdings
	id     model.AgentID
	wallet *wallet
	heir   model.AgentID
}

// NewHousehold creates a household holding cash pennies.
func NewHousehold(id model.AgentID, cash int64) *Household {
	return &Household{id: id, wallet: newWallet(cash)}
}

func (h *Household) ID() model.AgentID { return h.id }

func (h *Household) Balances() map[model.Currency]int64 { return h.wallet.snapshot() }

func (h *Household) Deposit(amount int64, currency model.Currency) error {
	return h.wallet.deposit(amount, currency)
}

func (h *Household) Withdraw(amount int64, currency model.Currency) error {
	return h.wallet.withdraw(amount, currency)
}

// SetHeir names who inherits the household's estate.
func (h *Household) SetHeir(id model.AgentID) { h.heir = id }

func (h *Household) Heir() (model.AgentID, bool) { return h.heir, !h.heir.IsNull() }

// Deactivate makes the household refuse further deposits.
func (h *Household) Deactivate() { h.wallet.deactivate() }

// Firm reads its balance through a getter (method shape).
type Firm struct {
	holdings
	id     model.AgentID
	wallet *wallet
}

// NewFirm creates a firm holding cash pennies.
func NewFirm(id model.AgentID, cash int64) *Firm {
	return &Firm{id: id, wallet: newWallet(cash)}
}

func (f *Firm) ID() model.AgentID { return f.id }

func (f *Firm) GetBalance(currency model.Currency) int64 { return f.wallet.balance(currency) }

func (f *Firm) Currencies() []model.Currency { return f.wallet.currencies() }

func (f *Firm) DepositFunds(amount int64, currency model.Currency) error {
	return f.wallet.deposit(amount, currency)
}

func (f *Firm) WithdrawFunds(amount int64, currency model.Currency) error {
	return f.wallet.withdraw(amount, currency)
}

// Deactivate makes the firm refuse further deposits.
func (f *Firm) Deactivate() { f.wallet.deactivate() }

// Government receives taxes and escheated estates.
type Government struct {
	holdings
	id     model.AgentID
	wallet *wallet
}

func NewGovernment(id model.AgentID, cash int64) *Government {
	if id.IsNull() {
		id = model.GovernmentID
	}
	return &Government{id: id, wallet: newWallet(cash)}
}

func (g *Government) ID() model.AgentID { return g.id }

func (g *Government) GetBalance(currency model.Currency) int64 { return g.wallet.balance(currency) }

func (g *Government) Currencies() []model.Currency { return g.wallet.currencies() }

func (g *Government) DepositFunds(amount int64, currency model.Currency) error {
	return g.wallet.deposit(amount, currency)
}

func (g *Government) WithdrawFunds(amount int64, currency model.Currency) error {
	return g.wallet.withdraw(amount, currency)
}

// CentralBank is the monetary authority. Its balance may go negative: it
// tracks net issuance, not holdings.
type CentralBank struct {
	wallet *wallet
}

func NewCentralBank() *CentralBank {
	w := newWallet(0)
	w.overdraft = true
	return &CentralBank{wallet: w}
}

func (c *CentralBank) ID() model.AgentID { return model.CentralBankID }

func (c *CentralBank) GetBalance(currency model.Currency) int64 { return c.wallet.balance(currency) }

func (c *CentralBank) DepositFunds(amount int64, currency model.Currency) error {
	return c.wallet.deposit(amount, currency)
}

func (c *CentralBank) WithdrawFunds(amount int64, currency model.Currency) error {
	return c.wallet.withdraw(amount, currency)
}

// Bank holds reserves as its own cash and owes its customers their demand
// deposits.
type Bank struct {
	id       model.AgentID
	reserves *wallet

	mu       sync.Mutex
	deposits map[model.AgentID]int64
}

// NewBank creates a bank holding reserves pennies of cash.
func NewBank(id model.AgentID, reserves int64) *Bank {
	return &Bank{id: id, reserves: newWallet(reserves), deposits: make(map[model.AgentID]int64)}
}

func (b *Bank) ID() model.AgentID { return b.id }

func (b *Bank) GetBalance(currency model.Currency) int64 { return b.reserves.balance(currency) }

func (b *Bank) Currencies() []model.Currency { return b.reserves.currencies() }

func (b *Bank) DepositFunds(amount int64, currency model.Currency) error {
	return b.reserves.deposit(amount, currency)
}

func (b *Bank) WithdrawFunds(amount int64, currency model.Currency) error {
	return b.reserves.withdraw(amount, currency)
}

// OpenDeposit books a demand deposit of amount for customer, backed by the
// same amount of new reserves.
func (b *Bank) OpenDeposit(customer model.AgentID, amount int64) error {
	if err := b.reserves.deposit(amount, model.DefaultCurrency); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deposits[customer] += amount
	return nil
}

func (b *Bank) CustomerBalance(customer model.AgentID) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deposits[customer]
}

// WithdrawForCustomer pays amount out of customer's deposit. Both the
// liability and the reserves backing it shrink.
func (b *Bank) WithdrawForCustomer(customer model.AgentID, amount int64) bool {
	if amount <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deposits[customer] < amount {
		return false
	}
	if err := b.reserves.withdraw(amount, model.DefaultCurrency); err != nil {
		return false
	}
	b.deposits[customer] -= amount
	return true
}

func (b *Bank) TotalDeposits() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total int64
	for _, v := range b.deposits {
		total += v
	}
	return total
}
