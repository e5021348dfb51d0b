package ledger

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SettlementEngine/internal/economy"
	"SettlementEngine/internal/escrow"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/registry"
	"SettlementEngine/internal/settlement"
)

func TestParseAmount(t *testing.T) {
	good := []struct {
		in   any
		want int64
	}{
		{int(5), 5},
		{int64(-7), -7},
		{uint32(9), 9},
		{json.Number("120"), 120},
		{decimal.NewFromInt(42), 42},
	}
	for _, tt := range good {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got)
	}

	bad := []any{5.0, float32(1), "10", true, nil, json.Number("1.5"), decimal.RequireFromString("1.25"), uint64(1 << 63)}
	for _, in := range bad {
		_, err := ParseAmount(in)
		require.ErrorIs(t, err, ErrTypeViolation, "%v", in)
		assert.ErrorIs(t, err, settlement.ErrValidation)
		assert.Equal(t, settlement.ReasonTypeViolation, settlement.ReasonOf(err))
	}
}

type world struct {
	reg *registry.Registry
	eng *settlement.Engine
	l   *Ledger
}

func newWorld(t *testing.T) *world {
	t.Helper()
	reg := registry.New()
	for _, a := range []any{
		economy.NewCentralBank(),
		economy.NewGovernment("", 0),
		economy.NewHousehold("hh", 100),
		economy.NewFirm("firm", 1000),
	} {
		_, err := reg.Register(a)
		require.NoError(t, err)
	}
	eng := settlement.New(reg)
	return &world{reg: reg, eng: eng, l: New(eng, reg, nil)}
}

func (w *world) bal(id model.AgentID) int64 {
	b, _ := w.eng.Balance(id, model.DefaultCurrency)
	return b
}

func TestExecuteBatch(t *testing.T) {
	w := newWorld(t)

	out, err := w.l.ExecuteBatch(CommandBatch{
		Tick: 1,
		Mutations: []SupplyMutation{
			{AgentID: "hh", Delta: 50, Reason: "stimulus"},
			{AgentID: "firm", Delta: int64(-100), Reason: "fine"},
		},
		Transfers: []TransferCommand{
			{DebitID: "firm", CreditID: "hh", Amount: 200, Memo: "wages"},
			{DebitID: "hh", CreditID: "ghost", Amount: 1},
			{DebitID: "hh", CreditID: "firm", Amount: 10_000},
		},
	})
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.True(t, out[0].OK())
	assert.True(t, out[1].OK())
	assert.True(t, out[2].OK())
	assert.ErrorIs(t, out[3].Err, ErrAgentLookup)
	assert.Equal(t, settlement.ReasonInsufficientFunds, settlement.ReasonOf(out[4].Err))

	assert.Equal(t, int64(350), w.bal("hh"))
	assert.Equal(t, int64(700), w.bal("firm"))
	assert.Equal(t, int64(-50), w.eng.SupplyDelta(model.DefaultCurrency))
}

func TestExecuteBatch_TypeViolationMovesNothing(t *testing.T) {
	w := newWorld(t)

	_, err := w.l.ExecuteBatch(CommandBatch{
		Tick:      1,
		Mutations: []SupplyMutation{{AgentID: "hh", Delta: 50}},
		Transfers: []TransferCommand{{DebitID: "firm", CreditID: "hh", Amount: 12.5}},
	})
	require.ErrorIs(t, err, ErrTypeViolation)
	assert.Equal(t, int64(100), w.bal("hh"))
	assert.Equal(t, int64(0), w.eng.Minted(model.DefaultCurrency))
}

func TestSupplyMutations(t *testing.T) {
	w := newWorld(t)

	out, err := w.l.ExecuteBatch(CommandBatch{
		Tick: 1,
		Mutations: []SupplyMutation{
			{AgentID: "hh", Delta: 500},
			{AgentID: "firm", Delta: -300},
			{AgentID: "hh", Delta: 0},
		},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Empty(t, out[2].Records, "a zero delta is a no-op")
	assert.Equal(t, int64(600), w.bal("hh"))
	assert.Equal(t, int64(700), w.bal("firm"))
	assert.Equal(t, int64(500), w.eng.Minted(model.DefaultCurrency))
	assert.Equal(t, int64(300), w.eng.Destroyed(model.DefaultCurrency))
	assert.Equal(t, int64(200), w.eng.SupplyDelta(model.DefaultCurrency))
}

func TestExit(t *testing.T) {
	w := newWorld(t)
	w.eng.RegisterAccount("bank", "hh")

	out, err := w.l.ExecuteBatch(CommandBatch{
		Tick: 3,
		Exits: []ExitCommand{{
			AgentID: "hh",
			Plan:    []Payout{{RecipientID: model.GovernmentID, Amount: 100, Memo: "estate"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, out[0].Err)
	require.Len(t, out[0].Records, 1)
	assert.Equal(t, model.TxEscheatment, out[0].Records[0].Type())

	assert.Equal(t, int64(100), w.bal(model.GovernmentID))
	_, ok := w.reg.Agent("hh")
	assert.False(t, ok)
	assert.Empty(t, w.eng.AccountHolders("bank"))
	acct, err := w.eng.Escrow().Get("hh")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusClosed, acct.Status())
}

func TestExit_EveryCurrencyLeavesThroughEscrow(t *testing.T) {
	w := newWorld(t)
	hh, ok := w.reg.Agent("hh")
	require.True(t, ok)
	require.NoError(t, hh.Deposit(700, "EUR"))
	heir := economy.NewHousehold("heir", 0)
	_, err := w.reg.Register(heir)
	require.NoError(t, err)
	eurBefore, _ := w.eng.AuditTotalM2In("EUR", nil)
	require.Equal(t, int64(700), eurBefore.Total)

	out, err := w.l.ExecuteBatch(CommandBatch{
		Tick: 2,
		Exits: []ExitCommand{{
			AgentID: "hh",
			Plan: []Payout{
				{RecipientID: "heir", Amount: 100, Memo: "bequest"},
				{RecipientID: "heir", Amount: 300, Currency: "EUR", Memo: "bequest"},
			},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, out[0].Err)
	assert.Equal(t, int64(100), heir.Balances()[model.DefaultCurrency])
	assert.Equal(t, int64(300), heir.Balances()["EUR"])

	assert.Equal(t, int64(400), w.eng.Destroyed("EUR"), "undistributed EUR is written off, not lost")
	expected := eurBefore.Total - w.eng.Destroyed("EUR")
	r, ok := w.eng.AuditTotalM2In("EUR", &expected)
	assert.True(t, ok)
	assert.Equal(t, int64(300), r.Total)
}
