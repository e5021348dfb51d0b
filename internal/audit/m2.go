// Package audit reconciles the M2 money-supply aggregate.
package audit

import (
	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

// Report is one M2 reconciliation.
//
//	Total = (GrossCash - BankReserves) + Deposits + EscrowCash
//
// Bank cash is counted in GrossCash and then removed as reserves so the
// deposits it backs are not counted twice.
type Report struct {
	Currency     model.Currency
	Agents       int
	GrossCash    int64
	BankReserves int64
	Deposits     int64
	EscrowCash   int64
	Total        int64
}

// Delta is the signed distance from expected (positive means surplus).
func (r Report) Delta(expected int64) int64 {
	return r.Total - expected
}

// Compute walks every financial agent except the central bank.
func Compute(agents []agent.Account, escrowCash int64, currency model.Currency) Report {
	r := Report{Currency: currency, EscrowCash: escrowCash}
	for _, a := range agents {
		if a == nil || agent.IsCentralBank(a) {
			continue
		}
		r.Agents++
		bal := a.Balance(currency)
		r.GrossCash += bal
		if bank, ok := agent.As[agent.Bank](a); ok {
			r.BankReserves += bal
			if currency == model.DefaultCurrency {
				r.Deposits += bank.TotalDeposits()
			}
		}
	}
	r.Total = (r.GrossCash - r.BankReserves) + r.Deposits + r.EscrowCash
	return r
}
