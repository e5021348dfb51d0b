package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"SettlementEngine/internal/ledger"
	"SettlementEngine/internal/logging"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/notifier"
	"SettlementEngine/internal/settlement"
)

// BatchSource produces the commands for a tick.
type BatchSource func(tick int64) ledger.CommandBatch

// TickReport summarizes one executed tick.
type TickReport struct {
	Tick       int64
	Commands   int
	Failed     int
	M2         int64
	Expected   int64
	Drift      int64 // actual minus expected when not reconciled
	Reconciled bool
}

// Scheduler drives the engine from cron. One mutex covers every job, so the
// engine is never entered concurrently.
type Scheduler struct {
	Cron   *cron.Cron
	Engine *settlement.Engine
	Ledger *ledger.Ledger
	Source BatchSource
	Log    *zap.Logger

	mu       sync.Mutex
	tick     int64
	baseline int64
	last     TickReport
}

// NewScheduler creates a new Scheduler. The current M2, net of any supply
// change the engine already made, becomes the baseline every later audit is
// checked against.
func NewScheduler(eng *settlement.Engine, l *ledger.Ledger, src BatchSource, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	r, _ := eng.AuditTotalM2(nil)
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   eng,
		Ledger:   l,
		Source:   src,
		Log:      log,
		baseline: r.Total - eng.SupplyDelta(model.DefaultCurrency),
	}
}

// RegisterAll registers the tick and passive audit jobs.
func (s *Scheduler) RegisterAll(tickCron, auditCron string) error {
	if _, err := s.Cron.AddFunc(tickCron, func() { s.RunTick() }); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	if _, err := s.Cron.AddFunc(auditCron, s.audit); err != nil {
		return fmt.Errorf("register audit task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// Last returns the report of the most recent tick.
func (s *Scheduler) Last() TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// RunTick advances one tick: executes its batch, then checks M2 against the
// baseline plus authorized supply change. Drift found by the check is raised
// as an integrity event and absorbed into the baseline, so only the tick in
// which it appeared fails to reconcile.
func (s *Scheduler) RunTick() TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	rep := TickReport{Tick: s.tick}
	batch := ledger.CommandBatch{Tick: s.tick}
	if s.Source != nil {
		batch = s.Source(s.tick)
		batch.Tick = s.tick
	}

	out, err := s.Ledger.ExecuteBatch(batch)
	if err != nil {
		s.Log.Error("tick rejected", zap.Int64("tick", s.tick), zap.Error(err))
	}
	rep.Commands = len(out)
	for _, o := range out {
		if !o.OK() {
			rep.Failed++
		}
	}

	rep.Expected = s.baseline + s.Engine.SupplyDelta(model.DefaultCurrency)
	r, ok := s.Engine.AuditTotalM2(&rep.Expected)
	rep.M2, rep.Reconciled = r.Total, ok
	if !ok {
		rep.Drift = r.Delta(rep.Expected)
		s.Engine.ReportSupplyDrift(s.tick, model.DefaultCurrency, rep.Drift,
			fmt.Sprintf("tick %d: m2 %d, expected %d", s.tick, r.Total, rep.Expected))
		s.baseline += rep.Drift
		logging.Critical(s.Log, "supply drift absorbed into baseline",
			zap.Int64("tick", s.tick),
			zap.Int64("drift", rep.Drift),
			zap.Int64("baseline", s.baseline),
		)
	}

	s.Log.Info("tick complete",
		zap.Int64("tick", rep.Tick),
		zap.Int("commands", rep.Commands),
		zap.Int("failed", rep.Failed),
		zap.Int64("m2", rep.M2),
		zap.Bool("reconciled", rep.Reconciled),
	)
	s.last = rep
	return rep
}

func (s *Scheduler) audit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Engine.AuditTotalM2(nil)
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch command {
	case "/m2":
		expected := s.baseline + s.Engine.SupplyDelta(model.DefaultCurrency)
		r, _ := s.Engine.AuditTotalM2(&expected)
		return notifier.FormatAudit(r, &expected)
	case "/supply":
		cur := model.DefaultCurrency
		return notifier.FormatSupply(s.Engine.Minted(cur), s.Engine.Destroyed(cur), cur)
	case "/tick":
		if s.last.Tick == 0 {
			return "No tick has run yet."
		}
		status := "reconciled ✅"
		if !s.last.Reconciled {
			status = fmt.Sprintf("drift %+d ⚠️", s.last.Drift)
		}
		return fmt.Sprintf("Tick %d: %d commands, %d failed, M2 %s, %s",
			s.last.Tick, s.last.Commands, s.last.Failed,
			model.NewMoney(s.last.M2, model.DefaultCurrency), status)
	default:
		return "Available commands:\n• /m2\n• /supply\n• /tick"
	}
}
