package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SettlementEngine/internal/economy"
	"SettlementEngine/internal/ledger"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/registry"
	"SettlementEngine/internal/settlement"
)

func newScheduler(t *testing.T, src BatchSource) (*Scheduler, *settlement.Engine) {
	t.Helper()
	reg := registry.New()
	for _, a := range []any{
		economy.NewCentralBank(),
		economy.NewHousehold("hh", 1000),
		economy.NewFirm("firm", 0),
	} {
		_, err := reg.Register(a)
		require.NoError(t, err)
	}
	eng := settlement.New(reg)
	return NewScheduler(eng, ledger.New(eng, reg, nil), src, nil), eng
}

func TestRunTick(t *testing.T) {
	s, eng := newScheduler(t, func(tick int64) ledger.CommandBatch {
		return ledger.CommandBatch{
			Mutations: []ledger.SupplyMutation{{AgentID: "firm", Delta: 10}},
			Transfers: []ledger.TransferCommand{
				{DebitID: "hh", CreditID: "firm", Amount: 100, Memo: "rent"},
				{DebitID: "firm", CreditID: "nobody", Amount: 1},
			},
		}
	})

	rep := s.RunTick()
	assert.Equal(t, int64(1), rep.Tick)
	assert.Equal(t, 3, rep.Commands)
	assert.Equal(t, 1, rep.Failed)
	assert.True(t, rep.Reconciled)
	assert.Equal(t, int64(1010), rep.M2)
	assert.Equal(t, rep, s.Last())

	rep = s.RunTick()
	assert.Equal(t, int64(2), rep.Tick)
	assert.Equal(t, int64(1020), rep.M2)
	b, _ := eng.Balance("firm", model.DefaultCurrency)
	assert.Equal(t, int64(220), b)
}

func TestRunTick_DriftIsRaisedOnceAndAbsorbed(t *testing.T) {
	s, eng := newScheduler(t, func(int64) ledger.CommandBatch {
		return ledger.CommandBatch{Mutations: []ledger.SupplyMutation{{AgentID: "firm", Delta: 50}}}
	})
	hh, ok := eng.Directory().Agent("hh")
	require.True(t, ok)
	// money appearing outside the engine breaks reconciliation once
	require.NoError(t, hh.Deposit(1, model.DefaultCurrency))

	rep := s.RunTick()
	assert.False(t, rep.Reconciled)
	assert.Equal(t, int64(1), rep.Drift)
	require.Len(t, eng.IntegrityEvents(), 1)
	assert.Equal(t, settlement.KindSupplyDrift, eng.IntegrityEvents()[0].Kind)
	assert.Contains(t, s.HandleCommand("/tick"), "drift +1")

	for i := 0; i < 4; i++ {
		rep = s.RunTick()
		assert.True(t, rep.Reconciled, "tick %d", rep.Tick)
		assert.Equal(t, int64(0), rep.Drift)
	}
	assert.Len(t, eng.IntegrityEvents(), 1)
	b, _ := eng.Balance("firm", model.DefaultCurrency)
	assert.Equal(t, int64(250), b, "every mint survives")
	assert.Equal(t, int64(250), eng.SupplyDelta(model.DefaultCurrency))
}

func TestRunTick_NegativeDrift(t *testing.T) {
	s, eng := newScheduler(t, nil)
	hh, ok := eng.Directory().Agent("hh")
	require.True(t, ok)
	require.NoError(t, hh.Withdraw(10, model.DefaultCurrency))

	rep := s.RunTick()
	assert.False(t, rep.Reconciled)
	assert.Equal(t, int64(-10), rep.Drift)
	evt := eng.IntegrityEvents()[0]
	assert.Equal(t, int64(10), evt.Amount)
	assert.Equal(t, model.CentralBankID, evt.DebitID)

	assert.True(t, s.RunTick().Reconciled)
}

func TestRegisterAll(t *testing.T) {
	s, _ := newScheduler(t, nil)
	require.NoError(t, s.RegisterAll("*/5 * * * * *", "0 * * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)
	assert.Error(t, s.RegisterAll("bad", "0 * * * * *"))
}

func TestHandleCommand(t *testing.T) {
	s, _ := newScheduler(t, func(int64) ledger.CommandBatch {
		return ledger.CommandBatch{Mutations: []ledger.SupplyMutation{{AgentID: "firm", Delta: 250}}}
	})

	assert.Equal(t, "No tick has run yet.", s.HandleCommand("/tick"))
	s.RunTick()

	assert.Contains(t, s.HandleCommand("/tick"), "Tick 1: 1 commands, 0 failed")
	assert.Contains(t, s.HandleCommand("/supply"), "Minted: 2.50")
	m2 := s.HandleCommand("/m2")
	assert.Contains(t, m2, "12.50")
	assert.Contains(t, m2, "Reconciled")
	assert.Contains(t, s.HandleCommand("hello"), "/m2")
}
