package settlement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SettlementEngine/internal/economy"
	"SettlementEngine/internal/settlement"
)

func TestSeamlessPayment_DrawsOnDeposits(t *testing.T) {
	f := newFixture(t)
	hh := f.add(t, economy.NewHousehold("hh", 30))
	shop := f.add(t, economy.NewFirm("shop", 0))
	bankV := economy.NewBank("bank", 0)
	require.NoError(t, bankV.OpenDeposit("hh", 100))
	f.add(t, bankV)
	f.eng.RegisterAccount("bank", "hh")
	before := f.m2(t)

	_, err := f.eng.Transfer(hh, shop, 80, "groceries", 1, usd)
	require.NoError(t, err)

	assert.Equal(t, int64(0), bal(hh))
	assert.Equal(t, int64(80), bal(shop))
	assert.Equal(t, int64(50), bankV.CustomerBalance("hh"))
	assert.Equal(t, before, f.m2(t))
}

func TestSeamlessPayment_BankDeclineRestoresCash(t *testing.T) {
	f := newFixture(t)
	hh := f.add(t, economy.NewHousehold("hh", 30))
	shop := f.add(t, economy.NewFirm("shop", 0))
	bankV := economy.NewBank("bank", 0)
	require.NoError(t, bankV.OpenDeposit("hh", 100))
	// Reserves run down below what the customer is owed.
	require.NoError(t, bankV.WithdrawFunds(90, usd))
	f.add(t, bankV)
	f.eng.RegisterAccount("bank", "hh")

	_, err := f.eng.Transfer(hh, shop, 80, "groceries", 1, usd)
	require.Error(t, err)
	assert.Equal(t, settlement.ReasonBankUnavailable, settlement.ReasonOf(err))
	assert.Equal(t, int64(30), bal(hh))
	assert.Equal(t, int64(0), bal(shop))
	assert.Equal(t, int64(100), bankV.CustomerBalance("hh"))
}

func TestSeamlessPayment_UnlinkedBankIsIgnored(t *testing.T) {
	f := newFixture(t)
	hh := f.add(t, economy.NewHousehold("hh", 30))
	shop := f.add(t, economy.NewFirm("shop", 0))
	bankV := economy.NewBank("bank", 0)
	require.NoError(t, bankV.OpenDeposit("hh", 100))
	f.add(t, bankV)

	_, err := f.eng.Transfer(hh, shop, 80, "groceries", 1, usd)
	assert.Equal(t, settlement.ReasonInsufficientFunds, settlement.ReasonOf(err))
	assert.Equal(t, int64(30), bal(hh))
}

func TestSeamlessPayment_CreditFailureRefundsAsCash(t *testing.T) {
	f := newFixture(t)
	hh := f.add(t, economy.NewHousehold("hh", 30))
	closed := economy.NewFirm("closed", 0)
	closed.Deactivate()
	shop := f.add(t, closed)
	bankV := economy.NewBank("bank", 0)
	require.NoError(t, bankV.OpenDeposit("hh", 100))
	f.add(t, bankV)
	f.eng.RegisterAccount("bank", "hh")
	before := f.m2(t)

	_, err := f.eng.Transfer(hh, shop, 80, "groceries", 1, usd)
	assert.Equal(t, settlement.ReasonCreditRejected, settlement.ReasonOf(err))
	assert.Equal(t, int64(80), bal(hh))
	assert.Equal(t, int64(50), bankV.CustomerBalance("hh"))
	assert.Equal(t, before, f.m2(t))
}
