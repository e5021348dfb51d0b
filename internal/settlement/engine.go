// Package settlement is the single path through which agent balances change.
//
// Every operation either completes or leaves balances exactly as it found
// them. All-or-nothing is achieved by ordered mutation and compensating
// rollback; the engine is not safe for concurrent use and expects one caller
// (the simulation tick) at a time.
package settlement

import (
	"context"

	"go.uber.org/zap"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/depositor"
	"SettlementEngine/internal/escrow"
	"SettlementEngine/internal/model"
	"SettlementEngine/internal/recorder"
	"SettlementEngine/internal/registry"
	"SettlementEngine/internal/telemetry"
)

// DefaultMemoMaxLength bounds the memo attached to a transfer.
const DefaultMemoMaxLength = 255

// EscrowID is the pseudo-agent credited when an estate is parked in escrow.
const EscrowID model.AgentID = "ESCROW"

// IntegritySink receives unreconciled losses in addition to the log.
type IntegritySink interface {
	Report(evt recorder.IntegrityEvent)
}

// IntegritySinkFunc adapts a function to IntegritySink.
type IntegritySinkFunc func(evt recorder.IntegrityEvent)

func (f IntegritySinkFunc) Report(evt recorder.IntegrityEvent) { f(evt) }

// Engine serializes balance-affecting operations among registered agents.
type Engine struct {
	log       *zap.Logger
	dir       registry.Directory
	book      *escrow.Book
	index     *depositor.Index
	rec       recorder.Recorder
	metrics   *telemetry.Instruments
	sink      IntegritySink
	guard     *CallerGuard
	ctx       context.Context
	memoMax   int
	govID     model.AgentID
	tick      int64
	minted    map[model.Currency]int64
	destroyed map[model.Currency]int64
	losses    int64
	incidents []recorder.IntegrityEvent
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecorder sets where transfer records and integrity events are persisted.
func WithRecorder(r recorder.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

// WithInstruments sets the metric instruments.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(e *Engine) {
		if in != nil {
			e.metrics = in
		}
	}
}

// WithIntegritySink routes unreconciled losses to an operator channel.
func WithIntegritySink(s IntegritySink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithCallerGuard rejects mutating calls that originate outside the guard's
// allowed packages.
func WithCallerGuard(g *CallerGuard) Option {
	return func(e *Engine) { e.guard = g }
}

// WithMemoMaxLength overrides DefaultMemoMaxLength. Zero disables the check.
func WithMemoMaxLength(n int) Option {
	return func(e *Engine) { e.memoMax = n }
}

// WithGovernmentID names the agent that receives escheated estates.
func WithGovernmentID(id model.AgentID) Option {
	return func(e *Engine) {
		if !id.IsNull() {
			e.govID = id
		}
	}
}

// New creates an engine over dir. The engine owns its escrow book and
// depositor index.
func New(dir registry.Directory, opts ...Option) *Engine {
	if dir == nil {
		dir = registry.New()
	}
	e := &Engine{
		log:       zap.NewNop(),
		dir:       dir,
		book:      escrow.NewBook(),
		index:     depositor.NewIndex(),
		rec:       recorder.NewNoopRecorder(),
		metrics:   telemetry.Noop(),
		ctx:       context.Background(),
		memoMax:   DefaultMemoMaxLength,
		govID:     model.GovernmentID,
		minted:    make(map[model.Currency]int64),
		destroyed: make(map[model.Currency]int64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Directory returns the agent directory the engine resolves IDs through.
func (e *Engine) Directory() registry.Directory { return e.dir }

// Escrow returns the engine's escrow book (read access for reporting).
func (e *Engine) Escrow() *escrow.Book { return e.book }

// Tick is the latest tick the engine has seen.
func (e *Engine) Tick() int64 { return e.tick }

// Minted returns money created in currency since the engine started.
func (e *Engine) Minted(currency model.Currency) int64 { return e.minted[orDefault(currency)] }

// Destroyed returns money burned or written off in currency.
func (e *Engine) Destroyed(currency model.Currency) int64 { return e.destroyed[orDefault(currency)] }

// SupplyDelta is the net change in total money the engine has authorized.
func (e *Engine) SupplyDelta(currency model.Currency) int64 {
	return e.Minted(currency) - e.Destroyed(currency)
}

// IntegrityEvents returns every unreconciled loss raised so far.
func (e *Engine) IntegrityEvents() []recorder.IntegrityEvent {
	out := make([]recorder.IntegrityEvent, len(e.incidents))
	copy(out, e.incidents)
	return out
}

// Balance reads an agent's balance through the directory.
func (e *Engine) Balance(id model.AgentID, currency model.Currency) (int64, bool) {
	a, ok := e.dir.Agent(id)
	if !ok {
		return 0, false
	}
	return a.Balance(orDefault(currency)), true
}

func (e *Engine) observe(tick int64) {
	if tick > e.tick {
		e.tick = tick
	}
}

// issue builds a record, persists it and counts it.
func (e *Engine) issue(debit, credit model.AgentID, amount int64, currency model.Currency, txType model.TransactionType, tick int64, memo string, extra map[string]any) model.TransferRecord {
	rec := model.NewTransferRecord(debit, credit, amount, currency, txType, tick, memo, extra)
	if err := e.rec.RecordTransfer(rec); err != nil {
		e.log.Error("record transfer", zap.String("id", rec.ID().String()), zap.Error(err))
	}
	e.metrics.Transfer(e.ctx, string(txType), amount)
	return rec
}

// fail logs and counts a business failure and returns it as an error.
func (e *Engine) fail(f *Failure) error {
	e.metrics.Failure(e.ctx, string(f.Reason))
	e.log.Warn("settlement failed",
		zap.String("op", f.Op),
		zap.String("reason", string(f.Reason)),
		zap.String("debit", string(f.DebitID)),
		zap.String("credit", string(f.CreditID)),
		zap.Int64("amount", f.Amount),
		zap.Error(f.Err),
	)
	return f
}

func orDefault(c model.Currency) model.Currency {
	if c == "" {
		return model.DefaultCurrency
	}
	return c
}

func idOf(a agent.Account) model.AgentID {
	if a == nil {
		return ""
	}
	return a.ID()
}
