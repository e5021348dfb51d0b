package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

func TestShapes(t *testing.T) {
	var _ agent.PropertyStyle = (*Household)(nil)
	var _ agent.MethodStyle = (*Firm)(nil)
	var _ agent.MethodStyle = (*Government)(nil)
	var _ agent.MethodStyle = (*CentralBank)(nil)
	var _ agent.MethodStyle = (*Bank)(nil)
	var _ agent.Bank = (*Bank)(nil)
	var _ agent.HeirProvider = (*Household)(nil)
	var _ agent.PortfolioHandler = (*Household)(nil)
	var _ agent.PortfolioHandler = (*Firm)(nil)
	var _ agent.PortfolioHandler = (*Government)(nil)
}

func TestWalletWithdrawInsufficient(t *testing.T) {
	h := NewHousehold("h1", 100)
	err := h.Withdraw(101, model.DefaultCurrency)
	require.ErrorIs(t, err, agent.ErrInsufficientFunds)
	assert.Equal(t, int64(100), h.Balances()[model.DefaultCurrency])

	require.NoError(t, h.Withdraw(100, model.DefaultCurrency))
	assert.Equal(t, int64(0), h.Balances()[model.DefaultCurrency])
}

func TestDeactivatedRejectsDeposits(t *testing.T) {
	f := NewFirm("f1", 0)
	f.Deactivate()
	require.ErrorIs(t, f.DepositFunds(10, model.DefaultCurrency), ErrInactive)
	assert.Equal(t, int64(0), f.GetBalance(model.DefaultCurrency))
}

func TestCentralBankOverdraft(t *testing.T) {
	cb := NewCentralBank()
	require.NoError(t, cb.WithdrawFunds(500, model.DefaultCurrency))
	assert.Equal(t, int64(-500), cb.GetBalance(model.DefaultCurrency))
	assert.Equal(t, model.CentralBankID, cb.ID())
}

func TestBankWithdrawForCustomer(t *testing.T) {
	b := NewBank("bank1", 0)
	require.NoError(t, b.OpenDeposit("h1", 300))
	assert.Equal(t, int64(300), b.GetBalance(model.DefaultCurrency))
	assert.Equal(t, int64(300), b.TotalDeposits())

	assert.False(t, b.WithdrawForCustomer("h1", 301))
	assert.False(t, b.WithdrawForCustomer("h2", 1))
	assert.True(t, b.WithdrawForCustomer("h1", 120))

	assert.Equal(t, int64(180), b.CustomerBalance("h1"))
	assert.Equal(t, int64(180), b.GetBalance(model.DefaultCurrency))
	assert.Equal(t, int64(180), b.TotalDeposits())
}

func TestPortfolioRoundTrip(t *testing.T) {
	h := NewHousehold("h1", 0)
	h.AddAsset(model.PortfolioAsset{AssetType: "stock", AssetID: "F1", Quantity: 10})
	p := h.Portfolio()
	h.ClearPortfolio()
	assert.True(t, h.Portfolio().Empty())

	g := NewGovernment("", 0)
	require.NoError(t, g.ReceivePortfolio(p))
	assert.Len(t, g.Portfolio().Assets, 1)
	assert.Equal(t, model.GovernmentID, g.ID())
}
