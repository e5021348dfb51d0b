package settlement

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

// Transfer moves amount from debit to credit. On success both balances
// changed by exactly amount; on failure neither did, unless the returned
// error matches ErrUnreconciledLoss.
//
// A non-positive amount moves nothing and still returns a record.
func (e *Engine) Transfer(debit, credit agent.Account, amount int64, memo string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	if err := e.authorize("transfer"); err != nil {
		return model.TransferRecord{}, err
	}
	return e.transfer("transfer", debit, credit, amount, memo, tick, currency)
}

func (e *Engine) transfer(op string, debit, credit agent.Account, amount int64, memo string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	return e.move(op, model.TxTransfer, debit, credit, amount, memo, tick, currency)
}

// move is transfer with an explicit record type.
func (e *Engine) move(op string, txType model.TransactionType, debit, credit agent.Account, amount int64, memo string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	if err := validatePair(op, debit, credit); err != nil {
		return model.TransferRecord{}, err
	}
	if err := e.checkMemo(op, debit, credit, amount, memo); err != nil {
		return model.TransferRecord{}, err
	}
	e.observe(tick)
	currency = orDefault(currency)

	if amount <= 0 {
		e.log.Warn("non-positive transfer amount, nothing moved",
			zap.String("debit", string(debit.ID())),
			zap.String("credit", string(credit.ID())),
			zap.Int64("amount", amount),
			zap.String("memo", memo),
		)
		return e.issue(debit.ID(), credit.ID(), amount, currency, txType, tick, memo, map[string]any{"noop": true}), nil
	}

	if err := e.withdraw(op, debit, credit.ID(), amount, currency); err != nil {
		return model.TransferRecord{}, err
	}
	if err := credit.Deposit(amount, currency); err != nil {
		return model.TransferRecord{}, e.refund(op, debit, credit.ID(), amount, currency, tick, err)
	}
	return e.issue(debit.ID(), credit.ID(), amount, currency, txType, tick, memo, nil), nil
}

// refund puts amount back into debit after the credit side rejected it.
func (e *Engine) refund(op string, debit agent.Account, creditID model.AgentID, amount int64, currency model.Currency, tick int64, cause error) error {
	if err := debit.Deposit(amount, currency); err != nil {
		e.raiseIntegrity(integrityEvent(tick, debit.ID(), creditID, amount, currency,
			fmt.Sprintf("%s: credit failed (%v), refund failed (%v)", op, cause, err)))
		return e.fail(&Failure{
			Op: op, Reason: ReasonUnreconciledLoss,
			DebitID: debit.ID(), CreditID: creditID, Amount: amount,
			Err: errors.Join(cause, err),
		})
	}
	return e.fail(&Failure{
		Op: op, Reason: ReasonCreditRejected,
		DebitID: debit.ID(), CreditID: creditID, Amount: amount,
		Err: cause,
	})
}

func validatePair(op string, debit, credit agent.Account) error {
	switch {
	case debit == nil || credit == nil:
		return &ValidationError{Op: op, Reason: ReasonNullAgent, Message: "debit and credit agents are required"}
	case debit.ID().IsNull() || credit.ID().IsNull():
		return &ValidationError{Op: op, Reason: ReasonNullAgent, Message: "agent has no id"}
	case debit.ID() == credit.ID():
		return &ValidationError{Op: op, Reason: ReasonNullAgent, Message: fmt.Sprintf("agent %s on both sides", debit.ID())}
	}
	return nil
}

func (e *Engine) checkMemo(op string, debit, credit agent.Account, amount int64, memo string) error {
	if e.memoMax <= 0 || utf8.RuneCountInString(memo) <= e.memoMax {
		return nil
	}
	return e.fail(&Failure{
		Op: op, Reason: ReasonInvalidMemo,
		DebitID: idOf(debit), CreditID: idOf(credit), Amount: amount,
		Err: fmt.Errorf("memo length %d exceeds %d", utf8.RuneCountInString(memo), e.memoMax),
	})
}
