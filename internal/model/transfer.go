package model

import (
	"maps"

	"github.com/google/uuid"
)

// TransactionType tags what kind of balance movement a record describes.
type TransactionType string

const (
	TxTransfer         TransactionType = "transfer"
	TxMoneyCreation    TransactionType = "money_creation"
	TxMoneyDestruction TransactionType = "money_destruction"
	TxFXSwap           TransactionType = "fx_swap"
	TxInheritance      TransactionType = "inheritance"
	TxEscheatment      TransactionType = "escheatment"
)

// SettlementMarket is the market identifier stamped on every record.
const SettlementMarket = "settlement"

// TransferRecord is the immutable receipt of a completed operation.
// Fields are read through accessors so a record cannot be altered once issued.
type TransferRecord struct {
	id       uuid.UUID
	debitID  AgentID
	creditID AgentID
	amount   int64
	currency Currency
	txType   TransactionType
	tick     int64
	metadata map[string]any
}

// NewTransferRecord issues a record. The memo is stored under metadata["memo"].
func NewTransferRecord(debit, credit AgentID, amount int64, currency Currency, txType TransactionType, tick int64, memo string, extra map[string]any) TransferRecord {
	md := make(map[string]any, len(extra)+1)
	maps.Copy(md, extra)
	md["memo"] = memo
	if currency == "" {
		currency = DefaultCurrency
	}
	return TransferRecord{
		id:       uuid.New(),
		debitID:  debit,
		creditID: credit,
		amount:   amount,
		currency: currency,
		txType:   txType,
		tick:     tick,
		metadata: md,
	}
}

func (r TransferRecord) ID() uuid.UUID         { return r.id }
func (r TransferRecord) DebitID() AgentID      { return r.debitID }
func (r TransferRecord) CreditID() AgentID     { return r.creditID }
func (r TransferRecord) Amount() int64         { return r.amount }
func (r TransferRecord) Quantity() int64       { return r.amount }
func (r TransferRecord) Currency() Currency    { return r.currency }
func (r TransferRecord) Type() TransactionType { return r.txType }
func (r TransferRecord) Tick() int64           { return r.tick }
func (r TransferRecord) Price() int64          { return 1 }
func (r TransferRecord) Market() string        { return SettlementMarket }

// Memo returns the free-text memo attached at issue time.
func (r TransferRecord) Memo() string {
	s, _ := r.metadata["memo"].(string)
	return s
}

// Metadata returns a copy of the record metadata.
func (r TransferRecord) Metadata() map[string]any {
	return maps.Clone(r.metadata)
}

// IsZero reports whether r was never issued.
func (r TransferRecord) IsZero() bool { return r.id == uuid.Nil }
