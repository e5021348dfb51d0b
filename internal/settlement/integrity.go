package settlement

import (
	"go.uber.org/zap"

	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
)

// Integrity event kinds.
const (
	KindUnreconciledLoss = string(ReasonUnreconciledLoss)
	KindReversalFailed   = "REVERSAL_FAILED"
	KindEscrowWriteOff   = "ESCROW_WRITE_OFF"
	KindSupplyDrift      = "SUPPLY_DRIFT"
)

func integrityEvent(tick int64, debit, credit model.AgentID, amount int64, currency model.Currency, detail string) recorder.IntegrityEvent {
	return recorder.IntegrityEvent{
		Tick:     tick,
		Kind:     KindUnreconciledLoss,
		DebitID:  debit,
		CreditID: credit,
		Amount:   amount,
		Currency: currency,
		Detail:   detail,
	}
}

// raiseIntegrity routes an unrecoverable defect to the log, the recorder,
// the metrics and the configured sink.
func (e *Engine) raiseIntegrity(evt recorder.IntegrityEvent) {
	e.incidents = append(e.incidents, evt)
	logging.Fatal(e.log, "integrity violation",
		zap.String("kind", evt.Kind),
		zap.Int64("tick", evt.Tick),
		zap.String("debit", string(evt.DebitID)),
		zap.String("credit", string(evt.CreditID)),
		zap.Int64("amount", evt.Amount),
		zap.String("currency", string(evt.Currency)),
		zap.String("detail", evt.Detail),
	)
	e.metrics.IntegrityViolation(e.ctx, evt.Kind)
	if err := e.rec.RecordIntegrity(&evt); err != nil {
		e.log.Error("record integrity event", zap.Error(err))
	}
	if e.sink != nil {
		e.sink.Report(evt)
	}
}

// ReportSupplyDrift raises an integrity event for money that appeared or
// vanished outside every authorized path. delta is actual minus expected.
func (e *Engine) ReportSupplyDrift(tick int64, currency model.Currency, delta int64, detail string) {
	currency = orDefault(currency)
	e.observe(tick)
	debit, credit := model.AgentID("UNKNOWN"), model.CentralBankID
	amount := delta
	if delta < 0 {
		debit, credit, amount = model.CentralBankID, "UNKNOWN", -delta
	}
	evt := integrityEvent(tick, debit, credit, amount, currency, detail)
	evt.Kind = KindSupplyDrift
	e.raiseIntegrity(evt)
}
