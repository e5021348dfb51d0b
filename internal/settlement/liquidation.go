package settlement

import (
	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

// RecordLiquidation books the loss of winding up a: inventory plus capital
// not covered by recovered cash. When government is given, whatever cash a
// still holds escheats to it.
func (e *Engine) RecordLiquidation(a agent.Account, inventoryValue, capitalValue, recoveredCash int64, reason string, tick int64, government agent.Account) error {
	const op = "liquidation"
	if err := e.authorize(op); err != nil {
		return err
	}
	if a == nil || a.ID().IsNull() {
		return &ValidationError{Op: op, Reason: ReasonNullAgent, Message: "liquidated agent is required"}
	}
	e.observe(tick)
	loss := max(inventoryValue+capitalValue-recoveredCash, 0)
	e.losses += loss
	e.log.Info("liquidation recorded",
		zap.String("agent", string(a.ID())),
		zap.Int64("inventory", inventoryValue),
		zap.Int64("capital", capitalValue),
		zap.Int64("recovered", recoveredCash),
		zap.Int64("loss", loss),
		zap.String("reason", reason),
		zap.Int64("tick", tick),
	)
	if government == nil {
		return nil
	}
	residual := a.Balance(model.DefaultCurrency)
	if residual <= 0 {
		return nil
	}
	_, err := e.move(op, model.TxEscheatment, a, government, residual, "liquidation_escheatment", tick, model.DefaultCurrency)
	return err
}

// TotalLiquidationLosses is the running sum of booked liquidation losses.
func (e *Engine) TotalLiquidationLosses() int64 { return e.losses }
