package settlement

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
)

// Credit is one recipient of a one-to-many settlement.
type Credit struct {
	Agent  agent.Account
	Amount int64
	Memo   string
}

// Leg is one transfer of a many-to-many settlement.
type Leg struct {
	Debit    agent.Account
	Credit   agent.Account
	Amount   int64
	Memo     string
	Currency model.Currency
}

// SettleAtomic withdraws the sum of credits from debit once and pays each
// credit in order. If any credit fails every applied credit is reversed and
// debit is refunded, so either all credits land or none do.
func (e *Engine) SettleAtomic(debit agent.Account, credits []Credit, tick int64) ([]model.TransferRecord, error) {
	const op = "settle_atomic"
	if err := e.authorize(op); err != nil {
		return nil, err
	}
	if debit == nil || debit.ID().IsNull() {
		return nil, &ValidationError{Op: op, Reason: ReasonNullAgent, Message: "debit agent is required"}
	}
	var total int64
	for i, c := range credits {
		if err := validatePair(op, debit, c.Agent); err != nil {
			return nil, fmt.Errorf("credit %d: %w", i, err)
		}
		if c.Amount < 0 {
			return nil, e.fail(&Failure{Op: op, Reason: ReasonInvalidAmount, DebitID: debit.ID(), CreditID: c.Agent.ID(), Amount: c.Amount})
		}
		if err := e.checkMemo(op, debit, c.Agent, c.Amount, c.Memo); err != nil {
			return nil, err
		}
		total += c.Amount
	}
	e.observe(tick)
	if total == 0 {
		e.log.Warn("zero settlement total, nothing moved",
			zap.String("debit", string(debit.ID())),
			zap.Int("credits", len(credits)),
			zap.Int64("tick", tick),
		)
		return nil, nil
	}

	currency := model.DefaultCurrency
	if err := e.withdraw(op, debit, "", total, currency); err != nil {
		return nil, err
	}

	applied := make([]Credit, 0, len(credits))
	for _, c := range credits {
		if c.Amount == 0 {
			continue
		}
		if err := c.Agent.Deposit(c.Amount, currency); err != nil {
			return nil, e.unwindCredits(op, debit, c, applied, total, tick, err)
		}
		applied = append(applied, c)
	}

	records := make([]model.TransferRecord, 0, len(applied))
	for _, c := range applied {
		records = append(records, e.issue(debit.ID(), c.Agent.ID(), c.Amount, currency, model.TxTransfer, tick, c.Memo, nil))
	}
	return records, nil
}

// unwindCredits takes applied credits back in reverse order and refunds
// whatever was recovered to debit.
func (e *Engine) unwindCredits(op string, debit agent.Account, failed Credit, applied []Credit, total, tick int64, cause error) error {
	currency := model.DefaultCurrency
	var lost int64
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		c := applied[i]
		if err := c.Agent.Withdraw(c.Amount, currency); err != nil {
			lost += c.Amount
			errs = append(errs, err)
			evt := integrityEvent(tick, c.Agent.ID(), debit.ID(), c.Amount, currency,
				fmt.Sprintf("%s: reversing credit failed (%v)", op, err))
			evt.Kind = KindReversalFailed
			e.raiseIntegrity(evt)
		}
	}
	if refund := total - lost; refund > 0 {
		if err := debit.Deposit(refund, currency); err != nil {
			lost += refund
			errs = append(errs, err)
			e.raiseIntegrity(integrityEvent(tick, debit.ID(), failed.Agent.ID(), refund, currency,
				fmt.Sprintf("%s: refund failed (%v)", op, err)))
		}
	}
	if lost > 0 {
		return e.fail(&Failure{
			Op: op, Reason: ReasonUnreconciledLoss,
			DebitID: debit.ID(), CreditID: failed.Agent.ID(), Amount: lost,
			Err: errors.Join(append([]error{cause}, errs...)...),
		})
	}
	return e.fail(&Failure{
		Op: op, Reason: ReasonCreditRejected,
		DebitID: debit.ID(), CreditID: failed.Agent.ID(), Amount: failed.Amount,
		Err: cause,
	})
}

// ExecuteMultipartySettlement runs legs in order through the transfer
// primitive. On the first failure the completed legs are reversed in reverse
// order. A reversal that fails is logged FATAL and the call reports an
// unreconciled loss.
func (e *Engine) ExecuteMultipartySettlement(legs []Leg, tick int64) ([]model.TransferRecord, error) {
	if err := e.authorize("multiparty"); err != nil {
		return nil, err
	}
	return e.multiparty("multiparty", legs, tick)
}

func (e *Engine) multiparty(op string, legs []Leg, tick int64) ([]model.TransferRecord, error) {
	for i, l := range legs {
		if err := validatePair(op, l.Debit, l.Credit); err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
	}

	records := make([]model.TransferRecord, 0, len(legs))
	for i, l := range legs {
		rec, err := e.transfer(op, l.Debit, l.Credit, l.Amount, l.Memo, tick, l.Currency)
		if err == nil {
			records = append(records, rec)
			continue
		}
		if lost := e.reverseLegs(op, legs[:i], tick); lost > 0 {
			return nil, e.fail(&Failure{
				Op: op, Reason: ReasonUnreconciledLoss,
				DebitID: l.Debit.ID(), CreditID: l.Credit.ID(), Amount: lost,
				Err: fmt.Errorf("leg %d: %w", i, err),
			})
		}
		return nil, fmt.Errorf("leg %d: %w", i, err)
	}
	return records, nil
}

// reverseLegs issues inverse transfers for done, last first, and returns the
// amount it could not reverse.
func (e *Engine) reverseLegs(op string, done []Leg, tick int64) int64 {
	var lost int64
	for i := len(done) - 1; i >= 0; i-- {
		l := done[i]
		if l.Amount <= 0 {
			continue
		}
		if _, err := e.transfer(op+"_reversal", l.Credit, l.Debit, l.Amount, "reversal", tick, l.Currency); err != nil {
			lost += l.Amount
			logging.Fatal(e.log, "leg reversal failed",
				zap.Int("leg", i),
				zap.String("debit", string(l.Debit.ID())),
				zap.String("credit", string(l.Credit.ID())),
				zap.Int64("amount", l.Amount),
				zap.Error(err),
			)
			evt := integrityEvent(tick, l.Credit.ID(), l.Debit.ID(), l.Amount, orDefault(l.Currency),
				fmt.Sprintf("%s: leg %d reversal failed (%v)", op, i, err))
			evt.Kind = KindReversalFailed
			e.raiseIntegrity(evt)
		}
	}
	return lost
}
