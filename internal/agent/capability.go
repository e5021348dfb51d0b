package agent

import "SettlementEngine/internal/model"

// HeirProvider is implemented by agents that name a successor for their estate.
type HeirProvider interface {
	Heir() (model.AgentID, bool)
}

// CurrencyLister is implemented by method-style agents that can name the
// currencies they hold.
type CurrencyLister interface {
	Currencies() []model.Currency
}

// PortfolioHandler is implemented by agents that hold non-cash assets.
type PortfolioHandler interface {
	Portfolio() model.Portfolio
	ReceivePortfolio(p model.Portfolio) error
	ClearPortfolio()
}

// Bank is the collaborator that holds customer demand deposits.
type Bank interface {
	CustomerBalance(customer model.AgentID) int64
	WithdrawForCustomer(customer model.AgentID, amount int64) bool
	TotalDeposits() int64
}
