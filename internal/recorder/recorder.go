package recorder

import (
	"SettlementEngine/internal/audit"
	"SettlementEngine/internal/model"
)

// IntegrityEvent records an unreconciled loss or a failed compensation.
type IntegrityEvent struct {
	Tick     int64
	Kind     string // "UNRECONCILED_LOSS", "REVERSAL_FAILED", "ESCROW_WRITE_OFF"
	DebitID  model.AgentID
	CreditID model.AgentID
	Amount   int64
	Currency model.Currency
	Detail   string
}

// AuditEvent records one M2 reconciliation.
type AuditEvent struct {
	Tick     int64
	Report   audit.Report
	Expected *int64
	OK       bool
}

// EscrowClosure records the terminal state of an escrow account.
type EscrowClosure struct {
	Tick       int64
	DeceasedID model.AgentID
	Status     string
	WrittenOff map[model.Currency]int64 // empty for a clean close
	Assets     int
}

// TransferRow is a persisted transfer record read back for reporting.
type TransferRow struct {
	ID       string
	Tick     int64
	Type     string
	DebitID  string
	CreditID string
	Amount   int64
	Currency string
	Memo     string
}

// Recorder persists settlement output for analysis.
type Recorder interface {
	RecordTransfer(rec model.TransferRecord) error
	RecordIntegrity(evt *IntegrityEvent) error
	RecordAudit(evt *AuditEvent) error
	RecordEscrowClosure(evt *EscrowClosure) error
	RecentTransfers(limit int) ([]TransferRow, error)
	Close() error
}
