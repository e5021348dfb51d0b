package settlement

import (
	"fmt"

	"SettlementEngine/internal/model"
)

// ExecuteSwap settles a matched currency exchange: PartyA pays AmountA in
// CurrencyA to PartyB and PartyB pays AmountB in CurrencyB back. Both legs
// land or neither does.
func (e *Engine) ExecuteSwap(m model.FXMatch) (model.TransferRecord, error) {
	const op = "fx_swap"
	if err := e.authorize(op); err != nil {
		return model.TransferRecord{}, err
	}
	if m.AmountA <= 0 || m.AmountB <= 0 {
		return model.TransferRecord{}, e.fail(&Failure{
			Op: op, Reason: ReasonInvalidAmount,
			DebitID: m.PartyA, CreditID: m.PartyB, Amount: min(m.AmountA, m.AmountB),
		})
	}
	a, err := e.resolve(op, m.PartyA)
	if err != nil {
		return model.TransferRecord{}, err
	}
	b, err := e.resolve(op, m.PartyB)
	if err != nil {
		return model.TransferRecord{}, err
	}

	legs := []Leg{
		{Debit: a, Credit: b, Amount: m.AmountA, Currency: m.CurrencyA, Memo: fmt.Sprintf("fx_swap %s->%s", m.CurrencyA, m.CurrencyB)},
		{Debit: b, Credit: a, Amount: m.AmountB, Currency: m.CurrencyB, Memo: fmt.Sprintf("fx_swap %s->%s", m.CurrencyB, m.CurrencyA)},
	}
	if _, err := e.multiparty(op, legs, m.Tick); err != nil {
		return model.TransferRecord{}, err
	}
	return e.issue(m.PartyA, m.PartyB, m.AmountA, m.CurrencyA, model.TxFXSwap, m.Tick, "fx_swap", map[string]any{
		"amount_b":   m.AmountB,
		"currency_b": string(m.CurrencyB),
		"rate_a_b":   m.RateAToB,
	}), nil
}
