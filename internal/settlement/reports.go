package settlement

import (
	"go.uber.org/zap"

	"SettlementEngine/internal/audit"
	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
)

// AuditTotalM2 reconciles M2 in the default currency. With a nil expected
// total it only reports and always succeeds; otherwise a mismatch is logged
// CRITICAL and the result is false.
func (e *Engine) AuditTotalM2(expected *int64) (audit.Report, bool) {
	return e.AuditTotalM2In(model.DefaultCurrency, expected)
}

// AuditTotalM2In is AuditTotalM2 for an arbitrary currency.
func (e *Engine) AuditTotalM2In(currency model.Currency, expected *int64) (audit.Report, bool) {
	currency = orDefault(currency)
	r := audit.Compute(e.dir.FinancialAgents(), e.book.TotalCash(currency), currency)
	ok := true
	if expected == nil {
		e.log.Info("m2 audit",
			zap.String("currency", string(currency)),
			zap.Int64("total", r.Total),
			zap.Int("agents", r.Agents),
		)
	} else if delta := r.Delta(*expected); delta != 0 {
		ok = false
		e.metrics.AuditDelta(e.ctx, delta)
		logging.Critical(e.log, "m2 mismatch",
			zap.String("currency", string(currency)),
			zap.Int64("expected", *expected),
			zap.Int64("actual", r.Total),
			zap.Int64("delta", delta),
			zap.Int64("gross_cash", r.GrossCash),
			zap.Int64("bank_reserves", r.BankReserves),
			zap.Int64("deposits", r.Deposits),
			zap.Int64("escrow_cash", r.EscrowCash),
		)
	}
	if err := e.rec.RecordAudit(&recorder.AuditEvent{Tick: e.tick, Report: r, Expected: expected, OK: ok}); err != nil {
		e.log.Error("record audit", zap.Error(err))
	}
	return r, ok
}

// RegisterAccount links agentID as a depositor of bankID.
func (e *Engine) RegisterAccount(bankID, agentID model.AgentID) {
	e.index.Register(bankID, agentID)
}

// DeregisterAccount removes one bank/depositor link.
func (e *Engine) DeregisterAccount(bankID, agentID model.AgentID) {
	e.index.Deregister(bankID, agentID)
}

// AccountHolders lists the depositors of bankID.
func (e *Engine) AccountHolders(bankID model.AgentID) []model.AgentID {
	return e.index.Holders(bankID)
}

// AgentBanks lists the banks agentID holds deposits at.
func (e *Engine) AgentBanks(agentID model.AgentID) []model.AgentID {
	return e.index.Banks(agentID)
}

// RemoveAgentFromAllAccounts drops every link of agentID.
func (e *Engine) RemoveAgentFromAllAccounts(agentID model.AgentID) {
	e.index.RemoveAgent(agentID)
}
