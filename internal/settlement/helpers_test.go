package settlement_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/economy"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
	"SettlementEngine/internal/registry"
	"SettlementEngine/internal/settlement"
)

const usd = model.DefaultCurrency

// spyRecorder keeps what the engine persisted.
type spyRecorder struct {
	*recorder.NoopRecorder
	transfers []model.TransferRecord
	integrity []recorder.IntegrityEvent
	closures  []recorder.EscrowClosure
	audits    []recorder.AuditEvent
}

func (s *spyRecorder) RecordTransfer(rec model.TransferRecord) error {
	s.transfers = append(s.transfers, rec)
	return nil
}

func (s *spyRecorder) RecordIntegrity(evt *recorder.IntegrityEvent) error {
	s.integrity = append(s.integrity, *evt)
	return nil
}

func (s *spyRecorder) RecordEscrowClosure(evt *recorder.EscrowClosure) error {
	s.closures = append(s.closures, *evt)
	return nil
}

func (s *spyRecorder) RecordAudit(evt *recorder.AuditEvent) error {
	s.audits = append(s.audits, *evt)
	return nil
}

type fixture struct {
	reg  *registry.Registry
	eng  *settlement.Engine
	rec  *spyRecorder
	logs *observer.ObservedLogs
	cb   agent.Account
	gov  agent.Account
	govV *economy.Government
}

func newFixture(t *testing.T, opts ...settlement.Option) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		reg:  registry.New(),
		rec:  &spyRecorder{NoopRecorder: recorder.NewNoopRecorder()},
		logs: logs,
	}
	f.cb = f.add(t, economy.NewCentralBank())
	f.govV = economy.NewGovernment(model.GovernmentID, 0)
	f.gov = f.add(t, f.govV)
	base := []settlement.Option{settlement.WithLogger(zap.New(core)), settlement.WithRecorder(f.rec)}
	f.eng = settlement.New(f.reg, append(base, opts...)...)
	return f
}

func (f *fixture) add(t *testing.T, x any) agent.Account {
	t.Helper()
	a, err := f.reg.Register(x)
	require.NoError(t, err)
	return a
}

func (f *fixture) m2(t *testing.T) int64 {
	t.Helper()
	r, ok := f.eng.AuditTotalM2(nil)
	require.True(t, ok)
	return r.Total
}

func (f *fixture) severity(level string) int {
	return f.logs.FilterField(zap.String("severity", level)).Len()
}

func bal(a agent.Account) int64 { return a.Balance(usd) }
