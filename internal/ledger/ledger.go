// Package ledger executes a tick's commands against the settlement engine
// by agent ID.
package ledger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/registry"
	"SettlementEngine/internal/settlement"
)

// ErrAgentLookup is returned for a command naming an unregistered agent.
var ErrAgentLookup = errors.New("agent not registered")

// TransferCommand moves Amount from DebitID to CreditID.
type TransferCommand struct {
	DebitID  model.AgentID
	CreditID model.AgentID
	Amount   any
	Memo     string
	Currency model.Currency
}

// SupplyMutation changes money supply at AgentID: positive Delta mints,
// negative Delta burns.
type SupplyMutation struct {
	AgentID model.AgentID
	Delta   any
	Reason  string
}

// Payout is one cash entry of an exit's distribution plan.
type Payout struct {
	RecipientID model.AgentID
	Amount      any
	Currency    model.Currency // default currency when empty
	Memo        string
}

// ExitCommand takes an agent out of the economy through escrow.
type ExitCommand struct {
	AgentID model.AgentID
	Plan    []Payout
}

// CommandBatch is everything to apply in one tick.
type CommandBatch struct {
	Tick      int64
	Mutations []SupplyMutation
	Transfers []TransferCommand
	Exits     []ExitCommand
}

// Outcome is the result of one command.
type Outcome struct {
	Kind    string // "mutation", "transfer" or "exit"
	Index   int
	Records []model.TransferRecord
	Err     error
}

// OK reports whether the command succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Remover drops agents that have left the economy.
type Remover interface {
	Remove(id model.AgentID) bool
}

type parsedTransfer struct {
	TransferCommand
	amount int64
}

type parsedMutation struct {
	SupplyMutation
	delta int64
}

// Ledger applies command batches. Like the engine it serves, it is not safe
// for concurrent use.
type Ledger struct {
	eng     *settlement.Engine
	dir     registry.Directory
	remover Remover
	log     *zap.Logger
}

// New creates a ledger over eng. remover may be nil, in which case exited
// agents stay registered.
func New(eng *settlement.Engine, remover Remover, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{eng: eng, dir: eng.Directory(), remover: remover, log: log}
}

// ExecuteBatch applies mutations, then transfers, then exits, each in the
// order given. Every amount is type checked before anything moves; a type
// violation aborts the whole batch. Other failures are reported per command
// and the batch continues.
func (l *Ledger) ExecuteBatch(b CommandBatch) ([]Outcome, error) {
	muts := make([]parsedMutation, len(b.Mutations))
	for i, m := range b.Mutations {
		d, err := ParseAmount(m.Delta)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		muts[i] = parsedMutation{SupplyMutation: m, delta: d}
	}
	txs := make([]parsedTransfer, len(b.Transfers))
	for i, t := range b.Transfers {
		a, err := ParseAmount(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
		txs[i] = parsedTransfer{TransferCommand: t, amount: a}
	}
	plans := make([][]settlement.Distribution, len(b.Exits))
	for i, x := range b.Exits {
		for j, p := range x.Plan {
			a, err := ParseAmount(p.Amount)
			if err != nil {
				return nil, fmt.Errorf("exit %d payout %d: %w", i, j, err)
			}
			recipient, _ := l.dir.Agent(p.RecipientID)
			plans[i] = append(plans[i], settlement.Distribution{Recipient: recipient, Amount: a, Currency: p.Currency, Memo: p.Memo})
		}
	}

	out := make([]Outcome, 0, len(muts)+len(txs)+len(b.Exits))
	for i, m := range muts {
		recs, err := l.mutate(m, b.Tick)
		out = append(out, Outcome{Kind: "mutation", Index: i, Records: recs, Err: err})
	}
	for i, t := range txs {
		recs, err := l.transfer(t, b.Tick)
		out = append(out, Outcome{Kind: "transfer", Index: i, Records: recs, Err: err})
	}
	for i, x := range b.Exits {
		recs, err := l.exit(x.AgentID, plans[i], b.Tick)
		out = append(out, Outcome{Kind: "exit", Index: i, Records: recs, Err: err})
	}

	for _, o := range out {
		if o.Err != nil {
			l.log.Warn("command failed",
				zap.String("kind", o.Kind),
				zap.Int("index", o.Index),
				zap.Int64("tick", b.Tick),
				zap.Error(o.Err),
			)
		}
	}
	return out, nil
}

func (l *Ledger) lookup(id model.AgentID) (agent.Account, error) {
	a, ok := l.dir.Agent(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrAgentLookup)
	}
	return a, nil
}

func (l *Ledger) mutate(m parsedMutation, tick int64) ([]model.TransferRecord, error) {
	switch {
	case m.delta > 0:
		rec, err := l.eng.MintAndDistribute(m.AgentID, m.delta, tick, m.Reason)
		if err != nil {
			return nil, err
		}
		return []model.TransferRecord{rec}, nil
	case m.delta < 0:
		target, err := l.lookup(m.AgentID)
		if err != nil {
			return nil, err
		}
		cb, err := l.lookup(model.CentralBankID)
		if err != nil {
			return nil, err
		}
		rec, err := l.eng.TransferAndDestroy(target, cb, -m.delta, m.Reason, tick, model.DefaultCurrency)
		if err != nil {
			return nil, err
		}
		return []model.TransferRecord{rec}, nil
	}
	return nil, nil
}

func (l *Ledger) transfer(t parsedTransfer, tick int64) ([]model.TransferRecord, error) {
	debit, err := l.lookup(t.DebitID)
	if err != nil {
		return nil, err
	}
	credit, err := l.lookup(t.CreditID)
	if err != nil {
		return nil, err
	}
	rec, err := l.eng.Transfer(debit, credit, t.amount, t.Memo, tick, t.Currency)
	if err != nil {
		return nil, err
	}
	return []model.TransferRecord{rec}, nil
}

func (l *Ledger) exit(id model.AgentID, plan []settlement.Distribution, tick int64) ([]model.TransferRecord, error) {
	a, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	if _, err := l.eng.CreateSettlement(a, tick); err != nil {
		return nil, err
	}
	recs, err := l.eng.ExecuteSettlement(id, plan, tick)
	if err != nil {
		return nil, err
	}
	closed, err := l.eng.VerifyAndClose(id, tick)
	if err != nil {
		return recs, err
	}
	l.eng.RemoveAgentFromAllAccounts(id)
	if l.remover != nil {
		l.remover.Remove(id)
	}
	l.log.Info("agent exited", zap.String("agent", string(id)), zap.Bool("clean", closed), zap.Int64("tick", tick))
	return recs, nil
}
