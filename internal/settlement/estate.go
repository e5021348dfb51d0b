package settlement

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/escrow"
	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
)

// Distribution is one cash entry of an escrow distribution plan.
type Distribution struct {
	Recipient agent.Account
	Amount    int64
	Currency  model.Currency // default currency when empty
	Memo      string
	Type      model.TransactionType // inheritance, or escheatment without an heir
}

// CreateSettlement lifts a's cash in every currency it holds, and its
// portfolio, into a new OPEN escrow account. Money is parked, not destroyed:
// escrow cash is part of M2.
func (e *Engine) CreateSettlement(a agent.Account, tick int64) (*escrow.Account, error) {
	const op = "create_settlement"
	if err := e.authorize(op); err != nil {
		return nil, err
	}
	if a == nil || a.ID().IsNull() {
		return nil, &ValidationError{Op: op, Reason: ReasonNullAgent, Message: "exiting agent is required"}
	}
	id := a.ID()
	if prev, err := e.book.Get(id); err == nil && !prev.Status().Terminal() {
		return nil, fmt.Errorf("create settlement for %s: %w", id, escrow.ErrAccountExists)
	}
	e.observe(tick)

	cash, err := e.liftCash(op, a)
	if err != nil {
		return nil, err
	}

	var portfolio model.Portfolio
	ph, hasPortfolio := agent.As[agent.PortfolioHandler](a)
	if hasPortfolio {
		portfolio = ph.Portfolio().Clone()
		ph.ClearPortfolio()
	}

	var heir model.AgentID
	if hp, ok := agent.As[agent.HeirProvider](a); ok {
		if h, ok := hp.Heir(); ok {
			heir = h
		}
	}

	acct, err := e.book.Open(escrow.Opening{
		DeceasedID: id,
		Cash:       cash,
		Portfolio:  portfolio,
		HeirID:     heir,
		Tick:       tick,
	})
	if err != nil {
		e.restoreCash(a, cash, tick, fmt.Sprintf("%s: escrow open failed (%v)", op, err))
		if hasPortfolio && !portfolio.Empty() {
			if perr := ph.ReceivePortfolio(portfolio); perr != nil {
				e.log.Error("restore portfolio", zap.String("agent", string(id)), zap.Error(perr))
			}
		}
		return nil, fmt.Errorf("create settlement for %s: %w", id, err)
	}

	currencies := acct.Currencies()
	for _, c := range currencies {
		e.issue(id, EscrowID, cash[c], c, model.TxTransfer, tick, "escrow_open", nil)
	}
	e.log.Info("escrow opened",
		zap.String("agent", string(id)),
		zap.Int64("cash", acct.EscrowCash()),
		zap.Int("currencies", len(currencies)),
		zap.Int("assets", len(portfolio.Assets)),
		zap.String("heir", string(heir)),
		zap.Bool("escheatment", acct.IsEscheatment()),
		zap.Int64("tick", tick),
	)
	return acct, nil
}

// liftCash withdraws every positive balance of a. If one currency cannot be
// withdrawn the ones already taken are put back.
func (e *Engine) liftCash(op string, a agent.Account) (map[model.Currency]int64, error) {
	cash := make(map[model.Currency]int64)
	for _, c := range a.Currencies() {
		v := a.Balance(c)
		if v <= 0 {
			continue
		}
		if err := a.Withdraw(v, c); err != nil {
			e.restoreCash(a, cash, e.tick, fmt.Sprintf("%s: withdraw %s failed (%v)", op, c, err))
			return nil, e.fail(&Failure{Op: op, Reason: ReasonInsufficientFunds, DebitID: a.ID(), CreditID: EscrowID, Amount: v, Err: fmt.Errorf("%s: %w", c, err)})
		}
		cash[c] = v
	}
	return cash, nil
}

func (e *Engine) restoreCash(a agent.Account, cash map[model.Currency]int64, tick int64, cause string) {
	for c, v := range cash {
		if derr := a.Deposit(v, c); derr != nil {
			e.raiseIntegrity(integrityEvent(tick, a.ID(), EscrowID, v, c,
				fmt.Sprintf("%s, cash restore failed (%v)", cause, derr)))
		}
	}
}

// ExecuteSettlement distributes an escrow account. The portfolio goes to
// the heir, or to the government when the estate escheats. Cash entries are
// applied one by one; an entry larger than the remaining cash, or one the
// recipient refuses, is logged and skipped while the rest proceed.
func (e *Engine) ExecuteSettlement(id model.AgentID, plan []Distribution, tick int64) ([]model.TransferRecord, error) {
	const op = "execute_settlement"
	if err := e.authorize(op); err != nil {
		return nil, err
	}
	acct, err := e.book.Get(id)
	if err != nil {
		return nil, err
	}
	if err := acct.BeginProcessing(); err != nil {
		return nil, fmt.Errorf("execute settlement for %s: %w", id, err)
	}
	e.observe(tick)

	e.deliverPortfolio(acct)

	records := make([]model.TransferRecord, 0, len(plan))
	for i, d := range plan {
		if d.Recipient == nil || d.Recipient.ID().IsNull() {
			e.log.Error("distribution without recipient", zap.String("estate", string(id)), zap.Int("entry", i))
			continue
		}
		if d.Amount <= 0 {
			continue
		}
		currency := orDefault(d.Currency)
		if d.Amount > acct.Cash(currency) {
			logging.Critical(e.log, "distribution exceeds escrow cash",
				zap.String("estate", string(id)),
				zap.Int("entry", i),
				zap.String("recipient", string(d.Recipient.ID())),
				zap.Int64("amount", d.Amount),
				zap.String("currency", string(currency)),
				zap.Int64("escrow_cash", acct.Cash(currency)),
			)
			continue
		}
		if err := d.Recipient.Deposit(d.Amount, currency); err != nil {
			e.log.Error("distribution rejected by recipient",
				zap.String("estate", string(id)),
				zap.String("recipient", string(d.Recipient.ID())),
				zap.Int64("amount", d.Amount),
				zap.Error(err),
			)
			continue
		}
		if err := acct.Debit(d.Amount, currency); err != nil {
			// Checked above; a failure here means the recipient now holds
			// money escrow still counts.
			e.raiseIntegrity(integrityEvent(tick, EscrowID, d.Recipient.ID(), d.Amount, currency, err.Error()))
			continue
		}
		txType := d.Type
		if txType == "" {
			txType = model.TxInheritance
			if acct.IsEscheatment() {
				txType = model.TxEscheatment
			}
		}
		records = append(records, e.issue(EscrowID, d.Recipient.ID(), d.Amount, currency, txType, tick, d.Memo,
			map[string]any{"executed": true, "estate": string(id)}))
	}
	return records, nil
}

func (e *Engine) deliverPortfolio(acct *escrow.Account) {
	if len(acct.EscrowPortfolio().Assets) == 0 {
		return
	}
	recipientID := e.govID
	if heir, ok := acct.HeirID(); ok {
		recipientID = heir
	}
	fields := []zap.Field{
		zap.String("estate", string(acct.DeceasedID())),
		zap.String("recipient", string(recipientID)),
	}
	r, ok := e.dir.Agent(recipientID)
	if !ok {
		e.log.Error("portfolio recipient not registered", fields...)
		return
	}
	ph, ok := agent.As[agent.PortfolioHandler](r)
	if !ok {
		e.log.Error("portfolio recipient cannot hold assets", fields...)
		return
	}
	p := acct.TakePortfolio()
	if err := ph.ReceivePortfolio(p); err != nil {
		acct.RestorePortfolio(p)
		e.log.Error("portfolio delivery failed", append(fields, zap.Error(err))...)
		return
	}
	e.log.Info("portfolio delivered", append(fields, zap.Int("assets", len(p.Assets)))...)
}

// VerifyAndClose closes a fully distributed account and reports true.
// Anything left is written off, the account becomes CLOSED_WITH_LEAK and the
// result is false.
func (e *Engine) VerifyAndClose(id model.AgentID, tick int64) (bool, error) {
	const op = "verify_and_close"
	if err := e.authorize(op); err != nil {
		return false, err
	}
	acct, err := e.book.Get(id)
	if err != nil {
		return false, err
	}
	e.observe(tick)

	if len(acct.Currencies()) == 0 && len(acct.EscrowPortfolio().Assets) == 0 {
		if err := acct.Close(tick); err != nil {
			return false, fmt.Errorf("close escrow for %s: %w", id, err)
		}
		e.recordClosure(acct, 0, tick)
		return true, nil
	}

	cash, assets, err := acct.CloseWithLeak(tick)
	if err != nil {
		return false, fmt.Errorf("close escrow for %s: %w", id, err)
	}
	logging.Critical(e.log, "escrow closed with leak",
		zap.String("estate", string(id)),
		zap.Int64("written_off", cash[model.DefaultCurrency]),
		zap.Int("currencies", len(cash)),
		zap.Int("assets", assets),
		zap.Int64("tick", tick),
	)
	currencies := make([]model.Currency, 0, len(cash))
	for c := range cash {
		currencies = append(currencies, c)
	}
	slices.Sort(currencies)
	for _, c := range currencies {
		amount := cash[c]
		e.destroyed[c] += amount
		e.issue(EscrowID, model.CentralBankID, amount, c, model.TxMoneyDestruction, tick, "escrow_write_off",
			map[string]any{"estate": string(id)})
		evt := integrityEvent(tick, EscrowID, model.CentralBankID, amount, c,
			fmt.Sprintf("estate %s written off with %d undelivered assets", id, assets))
		evt.Kind = KindEscrowWriteOff
		if err := e.rec.RecordIntegrity(&evt); err != nil {
			e.log.Error("record write-off", zap.Error(err))
		}
	}
	e.recordClosure(acct, assets, tick)
	return false, nil
}

func (e *Engine) recordClosure(acct *escrow.Account, assets int, tick int64) {
	err := e.rec.RecordEscrowClosure(&recorder.EscrowClosure{
		Tick:       tick,
		DeceasedID: acct.DeceasedID(),
		Status:     string(acct.Status()),
		WrittenOff: acct.WrittenOffAll(),
		Assets:     assets,
	})
	if err != nil {
		e.log.Error("record escrow closure", zap.String("estate", string(acct.DeceasedID())), zap.Error(err))
	}
}
