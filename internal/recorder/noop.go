package recorder

import "SettlementEngine/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTransfer(_ model.TransferRecord) error  { return nil }
func (n *NoopRecorder) RecordIntegrity(_ *IntegrityEvent) error      { return nil }
func (n *NoopRecorder) RecordAudit(_ *AuditEvent) error              { return nil }
func (n *NoopRecorder) RecordEscrowClosure(_ *EscrowClosure) error   { return nil }
func (n *NoopRecorder) RecentTransfers(_ int) ([]TransferRow, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                 { return nil }
