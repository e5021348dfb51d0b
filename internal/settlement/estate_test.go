package settlement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"SettlementEngine/internal/economy"
	"SettlementEngine/internal/escrow"
	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/settlement"
	"SettlementEngine/internal/telemetry"
)

func estate(t *testing.T, f *fixture, cash int64, heir model.AgentID) (*economy.Household, *economy.Household) {
	t.Helper()
	deceased := economy.NewHousehold("deceased", cash)
	deceased.AddAsset(model.PortfolioAsset{AssetType: "stock", AssetID: "firm_1", Quantity: 10})
	var heirV *economy.Household
	if heir != "" {
		deceased.SetHeir(heir)
		heirV = economy.NewHousehold(heir, 0)
		f.add(t, heirV)
	}
	f.add(t, deceased)
	return deceased, heirV
}

func TestEscrow_FullLifecycleCloses(t *testing.T) {
	f := newFixture(t)
	_, heirV := estate(t, f, 1000, "heir")
	deceased, _ := f.reg.Agent("deceased")
	heir, _ := f.reg.Agent("heir")
	creditor := f.add(t, economy.NewFirm("creditor", 0))
	before := f.m2(t)

	acct, err := f.eng.CreateSettlement(deceased, 10)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusOpen, acct.Status())
	assert.Equal(t, int64(1000), acct.EscrowCash())
	assert.False(t, acct.IsEscheatment())
	assert.Equal(t, int64(0), bal(deceased))
	assert.Equal(t, before, f.m2(t), "escrow parks money, it does not destroy it")

	recs, err := f.eng.ExecuteSettlement("deceased", []settlement.Distribution{
		{Recipient: creditor, Amount: 600, Memo: "debt"},
		{Recipient: heir, Amount: 500, Memo: "too much"},
		{Recipient: heir, Amount: 400, Memo: "bequest"},
	}, 11)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.TxInheritance, recs[1].Type())
	assert.Equal(t, true, recs[1].Metadata()["executed"])
	assert.Equal(t, escrow.StatusProcessing, acct.Status())
	assert.Equal(t, 1, f.severity(logging.SeverityCritical))
	assert.Equal(t, int64(600), bal(creditor))
	assert.Equal(t, int64(400), bal(heir))
	assert.Len(t, heirV.Portfolio().Assets, 1)

	closed, err := f.eng.VerifyAndClose("deceased", 12)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, escrow.StatusClosed, acct.Status())
	assert.Equal(t, int64(12), acct.ClosedAt())
	assert.Equal(t, before, f.m2(t))
	require.Len(t, f.rec.closures, 1)
	assert.Equal(t, string(escrow.StatusClosed), f.rec.closures[0].Status)
}

func TestEscrow_ResidualIsWrittenOff(t *testing.T) {
	f := newFixture(t)
	estate(t, f, 1000, "heir")
	deceased, _ := f.reg.Agent("deceased")
	heir, _ := f.reg.Agent("heir")
	before := f.m2(t)

	_, err := f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	_, err = f.eng.ExecuteSettlement("deceased", []settlement.Distribution{{Recipient: heir, Amount: 700}}, 2)
	require.NoError(t, err)

	closed, err := f.eng.VerifyAndClose("deceased", 3)
	require.NoError(t, err)
	assert.False(t, closed)

	acct, err := f.eng.Escrow().Get("deceased")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusClosedWithLeak, acct.Status())
	assert.Equal(t, int64(0), acct.EscrowCash())
	assert.Equal(t, int64(300), acct.WrittenOff(usd))
	assert.Equal(t, int64(300), f.eng.Destroyed(usd))

	expected := before - 300
	_, ok := f.eng.AuditTotalM2(&expected)
	assert.True(t, ok)

	last := f.rec.transfers[len(f.rec.transfers)-1]
	assert.Equal(t, model.TxMoneyDestruction, last.Type())
	assert.Equal(t, "escrow_write_off", last.Memo())
	require.Len(t, f.rec.integrity, 1)
	assert.Equal(t, settlement.KindEscrowWriteOff, f.rec.integrity[0].Kind)
}

func TestEscrow_UndeliveredPortfolioLeaks(t *testing.T) {
	f := newFixture(t)
	// heir exists but is a firm's id that is not registered: portfolio stays
	deceasedV := economy.NewHousehold("deceased", 0)
	deceasedV.AddAsset(model.PortfolioAsset{AssetType: "bond", AssetID: "gov_1", Quantity: 1})
	deceasedV.SetHeir("missing")
	deceased := f.add(t, deceasedV)

	_, err := f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	_, err = f.eng.ExecuteSettlement("deceased", nil, 2)
	require.NoError(t, err)

	closed, err := f.eng.VerifyAndClose("deceased", 3)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, 1, f.rec.closures[0].Assets)
	assert.Equal(t, int64(0), f.eng.Destroyed(usd))
}

func TestEscrow_EscheatsToGovernment(t *testing.T) {
	f := newFixture(t)
	estate(t, f, 500, "")
	deceased, _ := f.reg.Agent("deceased")

	acct, err := f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	assert.True(t, acct.IsEscheatment())
	_, ok := acct.HeirID()
	assert.False(t, ok)

	recs, err := f.eng.ExecuteSettlement("deceased", []settlement.Distribution{{Recipient: f.gov, Amount: 500}}, 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TxEscheatment, recs[0].Type())
	assert.Len(t, f.govV.Portfolio().Assets, 1)
	assert.Equal(t, int64(500), bal(f.gov))

	closed, err := f.eng.VerifyAndClose("deceased", 3)
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestEscrow_RejectedDistributionIsSkipped(t *testing.T) {
	f := newFixture(t)
	estate(t, f, 100, "heir")
	deceased, _ := f.reg.Agent("deceased")
	closedFirm := economy.NewFirm("closed", 0)
	closedFirm.Deactivate()
	c := f.add(t, closedFirm)
	heir, _ := f.reg.Agent("heir")

	acct, err := f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	recs, err := f.eng.ExecuteSettlement("deceased", []settlement.Distribution{
		{Recipient: c, Amount: 60},
		{Recipient: heir, Amount: 100},
	}, 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(0), acct.EscrowCash())
	assert.Equal(t, int64(100), bal(heir))
}

func TestEscrow_OneLiveAccountPerAgent(t *testing.T) {
	f := newFixture(t)
	estate(t, f, 100, "")
	deceased, _ := f.reg.Agent("deceased")

	_, err := f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	require.NoError(t, deceased.Deposit(50, usd))

	_, err = f.eng.CreateSettlement(deceased, 2)
	require.ErrorIs(t, err, escrow.ErrAccountExists)
	assert.Equal(t, int64(50), bal(deceased))

	_, err = f.eng.ExecuteSettlement("deceased", []settlement.Distribution{{Recipient: f.gov, Amount: 100}}, 3)
	require.NoError(t, err)
	closed, err := f.eng.VerifyAndClose("deceased", 3)
	require.NoError(t, err)
	require.True(t, closed)

	_, err = f.eng.ExecuteSettlement("deceased", nil, 4)
	assert.ErrorIs(t, err, escrow.ErrInvalidTransition)

	acct, err := f.eng.CreateSettlement(deceased, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(50), acct.EscrowCash())
}

func TestEscrow_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.ExecuteSettlement("nobody", nil, 1)
	assert.ErrorIs(t, err, escrow.ErrAccountNotFound)
	_, err = f.eng.VerifyAndClose("nobody", 1)
	assert.ErrorIs(t, err, escrow.ErrAccountNotFound)
}

func TestEscrow_LiftsEveryCurrency(t *testing.T) {
	f := newFixture(t)
	deceasedV, _ := estate(t, f, 100, "heir")
	require.NoError(t, deceasedV.Deposit(700, "EUR"))
	deceased, _ := f.reg.Agent("deceased")
	heir, _ := f.reg.Agent("heir")
	eurBefore, _ := f.eng.AuditTotalM2In("EUR", nil)

	acct, err := f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Currency{"EUR", usd}, acct.Currencies())
	assert.Equal(t, int64(700), acct.Cash("EUR"))
	assert.Empty(t, deceased.Currencies(), "nothing is left on the exiting agent")

	eurParked, ok := f.eng.AuditTotalM2In("EUR", &eurBefore.Total)
	assert.True(t, ok)
	assert.Equal(t, int64(700), eurParked.EscrowCash)

	recs, err := f.eng.ExecuteSettlement("deceased", []settlement.Distribution{
		{Recipient: heir, Amount: 100, Memo: "bequest"},
		{Recipient: heir, Amount: 200, Currency: "EUR", Memo: "bequest"},
	}, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.Currency("EUR"), recs[1].Currency())
	assert.Equal(t, int64(200), heir.Balance("EUR"))

	closed, err := f.eng.VerifyAndClose("deceased", 3)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, int64(500), acct.WrittenOff("EUR"))
	assert.Equal(t, int64(500), f.eng.Destroyed("EUR"))
	assert.Equal(t, int64(0), f.eng.Destroyed(usd))

	expected := eurBefore.Total - f.eng.Destroyed("EUR")
	_, ok = f.eng.AuditTotalM2In("EUR", &expected)
	assert.True(t, ok, "EUR supply reconciles once the write-off is counted")
	require.Len(t, f.rec.closures, 1)
	assert.Equal(t, map[model.Currency]int64{"EUR": 500}, f.rec.closures[0].WrittenOff)
}

func TestEscrow_WriteOffCountedOnceInMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	in, err := telemetry.New(provider.Meter("test"))
	require.NoError(t, err)

	f := newFixture(t, settlement.WithInstruments(in))
	estate(t, f, 100, "heir")
	deceased, _ := f.reg.Agent("deceased")
	heir, _ := f.reg.Agent("heir")

	_, err = f.eng.CreateSettlement(deceased, 1)
	require.NoError(t, err)
	_, err = f.eng.ExecuteSettlement("deceased", []settlement.Distribution{{Recipient: heir, Amount: 70}}, 2)
	require.NoError(t, err)
	_, err = f.eng.VerifyAndClose("deceased", 3)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var destroyed int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "settlement.money.destroyed" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				destroyed += dp.Value
			}
		}
	}
	assert.Equal(t, int64(30), destroyed)
	assert.Equal(t, f.eng.Destroyed(usd), destroyed)
}
