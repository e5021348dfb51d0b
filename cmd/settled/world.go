package main

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"SettlementEngine/internal/config"
	"SettlementEngine/internal/economy"
	"SettlementEngine/internal/ledger"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
	"SettlementEngine/internal/registry"
	"SettlementEngine/internal/settlement"
	"SettlementEngine/internal/telemetry"
)

// Packages allowed to call the engine when the caller guard is on.
var guardedCallers = []string{
	"SettlementEngine/internal/ledger",
	"SettlementEngine/internal/scheduler",
}

type world struct {
	registry *registry.Registry
	engine   *settlement.Engine
}

// buildWorld creates the agents in cfg, registers them and links depositors
// to their banks.
func buildWorld(cfg *config.Config, log *zap.Logger, rec recorder.Recorder, metrics *telemetry.Instruments, extra ...settlement.Option) (*world, error) {
	reg := registry.New()
	opts := []settlement.Option{
		settlement.WithLogger(log),
		settlement.WithRecorder(rec),
		settlement.WithInstruments(metrics),
		settlement.WithMemoMaxLength(cfg.Engine.MemoMaxLength),
		settlement.WithGovernmentID(model.AgentID(cfg.Engine.GovernmentID)),
	}
	if cfg.Engine.CallerGuard {
		opts = append(opts, settlement.WithCallerGuard(settlement.NewCallerGuard(guardedCallers...)))
	}
	eng := settlement.New(reg, append(opts, extra...)...)

	if _, err := reg.Register(economy.NewCentralBank()); err != nil {
		return nil, err
	}
	banks := make(map[string]*economy.Bank)
	households := make(map[string]*economy.Household)
	for _, a := range cfg.Agents {
		id := model.AgentID(a.ID)
		cash := a.CashPennies()
		var x any
		switch a.Kind {
		case config.KindHousehold:
			h := economy.NewHousehold(id, cash)
			households[a.ID] = h
			x = h
		case config.KindFirm:
			x = economy.NewFirm(id, cash)
		case config.KindGovernment:
			x = economy.NewGovernment(id, cash)
		case config.KindBank:
			b := economy.NewBank(id, cash)
			banks[a.ID] = b
			x = b
		}
		if _, err := reg.Register(x); err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
	}

	for _, a := range cfg.Agents {
		if h, ok := households[a.ID]; ok && a.Heir != "" {
			h.SetHeir(model.AgentID(a.Heir))
		}
		bankIDs := make([]string, 0, len(a.Deposits))
		for b := range a.Deposits {
			bankIDs = append(bankIDs, b)
		}
		sort.Strings(bankIDs)
		for _, b := range bankIDs {
			amount, err := model.PenniesFromMajor(a.Deposits[b])
			if err != nil {
				return nil, fmt.Errorf("agent %s deposit at %s: %w", a.ID, b, err)
			}
			if err := banks[b].OpenDeposit(model.AgentID(a.ID), amount); err != nil {
				return nil, fmt.Errorf("agent %s deposit at %s: %w", a.ID, b, err)
			}
			eng.RegisterAccount(model.AgentID(b), model.AgentID(a.ID))
		}
	}

	log.Info("economy built", zap.Int("agents", reg.Len()))
	return &world{registry: reg, engine: eng}, nil
}

// batchSource turns the recurring commands and scheduled exits in cfg into
// a per-tick command batch. Amounts were validated by config.Validate.
func batchSource(cfg *config.Config) func(tick int64) ledger.CommandBatch {
	var transfers []ledger.TransferCommand
	for _, t := range cfg.Recurring.Transfers {
		amount, _ := model.PenniesFromMajor(t.Amount)
		transfers = append(transfers, ledger.TransferCommand{
			DebitID:  model.AgentID(t.Debit),
			CreditID: model.AgentID(t.Credit),
			Amount:   amount,
			Memo:     t.Memo,
			Currency: model.Currency(t.Currency),
		})
	}
	var mutations []ledger.SupplyMutation
	for _, m := range cfg.Recurring.Mutations {
		delta, _ := model.PenniesFromMajor(m.Delta)
		mutations = append(mutations, ledger.SupplyMutation{AgentID: model.AgentID(m.Agent), Delta: delta, Reason: m.Reason})
	}
	exits := make(map[int64][]ledger.ExitCommand)
	for _, x := range cfg.Exits {
		cmd := ledger.ExitCommand{AgentID: model.AgentID(x.Agent)}
		for _, p := range x.Plan {
			amount, _ := model.PenniesFromMajor(p.Amount)
			cmd.Plan = append(cmd.Plan, ledger.Payout{
				RecipientID: model.AgentID(p.Recipient),
				Amount:      amount,
				Currency:    model.Currency(p.Currency),
				Memo:        p.Memo,
			})
		}
		exits[x.Tick] = append(exits[x.Tick], cmd)
	}

	return func(tick int64) ledger.CommandBatch {
		return ledger.CommandBatch{
			Tick:      tick,
			Mutations: mutations,
			Transfers: transfers,
			Exits:     exits[tick],
		}
	}
}
