package settlement

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

var errBankDeclined = errors.New("bank declined customer withdrawal")

// withdraw takes amount out of debit. The central bank is never short. Other
// agents short of cash draw the shortfall from a bank that holds their
// deposits, after their cash has been taken.
func (e *Engine) withdraw(op string, debit agent.Account, creditID model.AgentID, amount int64, currency model.Currency) error {
	if agent.IsCentralBank(debit) {
		if err := debit.Withdraw(amount, currency); err != nil {
			return e.fail(&Failure{Op: op, Reason: ReasonInsufficientFunds, DebitID: debit.ID(), CreditID: creditID, Amount: amount, Err: err})
		}
		return nil
	}

	cash := debit.Balance(currency)
	if cash >= amount {
		if err := debit.Withdraw(amount, currency); err != nil {
			return e.fail(&Failure{Op: op, Reason: ReasonInsufficientFunds, DebitID: debit.ID(), CreditID: creditID, Amount: amount, Err: err})
		}
		return nil
	}

	shortfall := amount - max(cash, 0)
	bank, ok := e.fundingBank(debit.ID(), shortfall, currency)
	if !ok {
		return e.fail(&Failure{
			Op: op, Reason: ReasonInsufficientFunds,
			DebitID: debit.ID(), CreditID: creditID, Amount: amount,
			Err: fmt.Errorf("cash %d, need %d", cash, amount),
		})
	}
	return e.seamlessPay(op, debit, creditID, bank, cash, shortfall, currency)
}

// seamlessPay withdraws the agent's cash, then asks bank for the shortfall.
// If the bank refuses, the cash goes back.
func (e *Engine) seamlessPay(op string, debit agent.Account, creditID model.AgentID, bank agent.Account, cash, shortfall int64, currency model.Currency) error {
	if cash > 0 {
		if err := debit.Withdraw(cash, currency); err != nil {
			return e.fail(&Failure{Op: op, Reason: ReasonInsufficientFunds, DebitID: debit.ID(), CreditID: creditID, Amount: cash + shortfall, Err: err})
		}
	}
	b, _ := agent.As[agent.Bank](bank)
	if b.WithdrawForCustomer(debit.ID(), shortfall) {
		e.log.Debug("seamless payment",
			zap.String("agent", string(debit.ID())),
			zap.String("bank", string(bank.ID())),
			zap.Int64("cash", cash),
			zap.Int64("from_deposits", shortfall),
		)
		return nil
	}

	if cash > 0 {
		if err := debit.Deposit(cash, currency); err != nil {
			e.raiseIntegrity(integrityEvent(e.tick, debit.ID(), bank.ID(), cash, currency,
				fmt.Sprintf("%s: bank declined, cash restore failed (%v)", op, err)))
			return e.fail(&Failure{Op: op, Reason: ReasonUnreconciledLoss, DebitID: debit.ID(), CreditID: creditID, Amount: cash, Err: errors.Join(errBankDeclined, err)})
		}
	}
	return e.fail(&Failure{
		Op: op, Reason: ReasonBankUnavailable,
		DebitID: debit.ID(), CreditID: creditID, Amount: cash + shortfall,
		Err: fmt.Errorf("bank %s: %w", bank.ID(), errBankDeclined),
	})
}

// fundingBank finds the first bank, in ID order, holding at least shortfall
// for the agent. Seamless payment works in the default currency only.
func (e *Engine) fundingBank(id model.AgentID, shortfall int64, currency model.Currency) (agent.Account, bool) {
	if currency != model.DefaultCurrency {
		return nil, false
	}
	for _, bankID := range e.index.Banks(id) {
		acct, ok := e.dir.Agent(bankID)
		if !ok {
			continue
		}
		b, ok := agent.As[agent.Bank](acct)
		if !ok {
			continue
		}
		if b.CustomerBalance(id) >= shortfall {
			return acct, true
		}
	}
	return nil, false
}
