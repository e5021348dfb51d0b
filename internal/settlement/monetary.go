package settlement

import (
	"fmt"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

// CreateAndTransfer mints amount into destination when authority is the
// central bank. From any other authority it is an ordinary Transfer, so
// nobody else can create money.
func (e *Engine) CreateAndTransfer(authority, destination agent.Account, amount int64, reason string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	if err := e.authorize("create_and_transfer"); err != nil {
		return model.TransferRecord{}, err
	}
	return e.createAndTransfer(authority, destination, amount, reason, tick, currency)
}

func (e *Engine) createAndTransfer(authority, destination agent.Account, amount int64, reason string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	const op = "create_and_transfer"
	if err := validatePair(op, authority, destination); err != nil {
		return model.TransferRecord{}, err
	}
	if !agent.IsCentralBank(authority) {
		return e.transfer(op, authority, destination, amount, reason, tick, currency)
	}
	if err := e.checkMemo(op, authority, destination, amount, reason); err != nil {
		return model.TransferRecord{}, err
	}
	if amount <= 0 {
		return model.TransferRecord{}, e.fail(&Failure{Op: op, Reason: ReasonInvalidAmount, DebitID: authority.ID(), CreditID: destination.ID(), Amount: amount})
	}
	e.observe(tick)
	currency = orDefault(currency)
	if err := destination.Deposit(amount, currency); err != nil {
		return model.TransferRecord{}, e.fail(&Failure{Op: op, Reason: ReasonCreditRejected, DebitID: authority.ID(), CreditID: destination.ID(), Amount: amount, Err: err})
	}
	e.minted[currency] += amount
	e.log.Info("money created",
		zap.String("destination", string(destination.ID())),
		zap.Int64("amount", amount),
		zap.String("currency", string(currency)),
		zap.String("reason", reason),
		zap.Int64("tick", tick),
	)
	return e.issue(authority.ID(), destination.ID(), amount, currency, model.TxMoneyCreation, tick, reason, nil), nil
}

// TransferAndDestroy burns amount out of source when sinkAuthority is the
// central bank. Otherwise it is an ordinary Transfer.
func (e *Engine) TransferAndDestroy(source, sinkAuthority agent.Account, amount int64, reason string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	if err := e.authorize("transfer_and_destroy"); err != nil {
		return model.TransferRecord{}, err
	}
	return e.transferAndDestroy(source, sinkAuthority, amount, reason, tick, currency)
}

func (e *Engine) transferAndDestroy(source, sinkAuthority agent.Account, amount int64, reason string, tick int64, currency model.Currency) (model.TransferRecord, error) {
	const op = "transfer_and_destroy"
	if err := validatePair(op, source, sinkAuthority); err != nil {
		return model.TransferRecord{}, err
	}
	if !agent.IsCentralBank(sinkAuthority) {
		return e.transfer(op, source, sinkAuthority, amount, reason, tick, currency)
	}
	if err := e.checkMemo(op, source, sinkAuthority, amount, reason); err != nil {
		return model.TransferRecord{}, err
	}
	if amount <= 0 {
		return model.TransferRecord{}, e.fail(&Failure{Op: op, Reason: ReasonInvalidAmount, DebitID: source.ID(), CreditID: sinkAuthority.ID(), Amount: amount})
	}
	e.observe(tick)
	currency = orDefault(currency)
	if err := e.withdraw(op, source, sinkAuthority.ID(), amount, currency); err != nil {
		return model.TransferRecord{}, err
	}
	e.destroyed[currency] += amount
	e.log.Info("money destroyed",
		zap.String("source", string(source.ID())),
		zap.Int64("amount", amount),
		zap.String("currency", string(currency)),
		zap.String("reason", reason),
		zap.Int64("tick", tick),
	)
	return e.issue(source.ID(), sinkAuthority.ID(), amount, currency, model.TxMoneyDestruction, tick, reason, nil), nil
}

// MintAndDistribute creates amount in the default currency and credits it to
// targetID. Both the target and the central bank must be registered.
func (e *Engine) MintAndDistribute(targetID model.AgentID, amount int64, tick int64, reason string) (model.TransferRecord, error) {
	const op = "mint_and_distribute"
	if err := e.authorize(op); err != nil {
		return model.TransferRecord{}, err
	}
	cb, err := e.resolve(op, model.CentralBankID)
	if err != nil {
		return model.TransferRecord{}, err
	}
	target, err := e.resolve(op, targetID)
	if err != nil {
		return model.TransferRecord{}, err
	}
	return e.createAndTransfer(cb, target, amount, reason, tick, model.DefaultCurrency)
}

// resolve looks up id in the directory.
func (e *Engine) resolve(op string, id model.AgentID) (agent.Account, error) {
	if id.IsNull() {
		return nil, &ValidationError{Op: op, Reason: ReasonNullAgent, Message: "agent id is empty"}
	}
	a, ok := e.dir.Agent(id)
	if !ok {
		return nil, e.fail(&Failure{Op: op, Reason: ReasonUnknownAgent, CreditID: id, Err: fmt.Errorf("agent %s not registered", id)})
	}
	return a, nil
}
