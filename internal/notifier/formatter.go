package notifier

import (
	"fmt"
	"html"
	"strings"

	"SettlementEngine/internal/audit"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
)

// FormatIntegrityAlert formats an unreconciled loss for the operator chat.
func FormatIntegrityAlert(evt recorder.IntegrityEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 <b>%s</b> | tick %d\n\n", html.EscapeString(evt.Kind), evt.Tick))
	b.WriteString(fmt.Sprintf("%s → %s\n", html.EscapeString(string(evt.DebitID)), html.EscapeString(string(evt.CreditID))))
	b.WriteString(fmt.Sprintf("Amount: %s\n", model.NewMoney(evt.Amount, evt.Currency)))
	if evt.Detail != "" {
		b.WriteString(fmt.Sprintf("\n<code>%s</code>\n", html.EscapeString(evt.Detail)))
	}
	return b.String()
}

// FormatAudit formats an M2 reconciliation.
func FormatAudit(r audit.Report, expected *int64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>M2</b> %s\n\n", model.NewMoney(r.Total, r.Currency)))
	b.WriteString(fmt.Sprintf("Cash outside banks: %s\n", model.NewMoney(r.GrossCash-r.BankReserves, r.Currency)))
	b.WriteString(fmt.Sprintf("Deposits: %s\n", model.NewMoney(r.Deposits, r.Currency)))
	b.WriteString(fmt.Sprintf("Escrow: %s\n", model.NewMoney(r.EscrowCash, r.Currency)))
	b.WriteString(fmt.Sprintf("Agents: %d\n", r.Agents))
	if expected != nil {
		if d := r.Delta(*expected); d != 0 {
			b.WriteString(fmt.Sprintf("\n⚠️ Expected %s, delta %+d pennies\n", model.NewMoney(*expected, r.Currency), d))
		} else {
			b.WriteString("\nReconciled ✅\n")
		}
	}
	return b.String()
}

// FormatSupply formats the authorized supply change.
func FormatSupply(minted, destroyed int64, currency model.Currency) string {
	return fmt.Sprintf("🏦 <b>Supply</b>\n\nMinted: %s\nDestroyed: %s\nNet: %s\n",
		model.NewMoney(minted, currency),
		model.NewMoney(destroyed, currency),
		model.NewMoney(minted-destroyed, currency))
}
