// Package telemetry holds the OpenTelemetry counters the settlement engine
// updates. Without an installed SDK the global meter is a no-op.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ScopeName is the instrumentation scope used for the global meter.
const ScopeName = "SettlementEngine/settlement"

// Instruments groups the engine's counters.
type Instruments struct {
	transfers     metric.Int64Counter
	failures      metric.Int64Counter
	minted        metric.Int64Counter
	destroyed     metric.Int64Counter
	integrity     metric.Int64Counter
	auditDeltaAbs metric.Int64Histogram
}

// New creates instruments on meter.
func New(meter metric.Meter) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)
	if in.transfers, err = meter.Int64Counter("settlement.transfers",
		metric.WithDescription("Completed balance movements"), metric.WithUnit("{transfer}")); err != nil {
		return nil, fmt.Errorf("create transfers counter: %w", err)
	}
	if in.failures, err = meter.Int64Counter("settlement.failures",
		metric.WithDescription("Settlement operations that returned a failure"), metric.WithUnit("{failure}")); err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}
	if in.minted, err = meter.Int64Counter("settlement.money.created",
		metric.WithDescription("Pennies issued by the monetary authority"), metric.WithUnit("{penny}")); err != nil {
		return nil, fmt.Errorf("create minted counter: %w", err)
	}
	if in.destroyed, err = meter.Int64Counter("settlement.money.destroyed",
		metric.WithDescription("Pennies burned by the monetary authority or written off from escrow"), metric.WithUnit("{penny}")); err != nil {
		return nil, fmt.Errorf("create destroyed counter: %w", err)
	}
	if in.integrity, err = meter.Int64Counter("settlement.integrity.violations",
		metric.WithDescription("Unreconciled losses and failed compensations"), metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create integrity counter: %w", err)
	}
	if in.auditDeltaAbs, err = meter.Int64Histogram("settlement.audit.delta",
		metric.WithDescription("Absolute M2 audit mismatch"), metric.WithUnit("{penny}")); err != nil {
		return nil, fmt.Errorf("create audit histogram: %w", err)
	}
	return &in, nil
}

// Global builds instruments on the globally registered meter provider.
func Global() (*Instruments, error) {
	return New(otel.Meter(ScopeName))
}

// Noop returns instruments that record nothing.
func Noop() *Instruments {
	in, _ := New(noop.NewMeterProvider().Meter(ScopeName))
	return in
}

func (in *Instruments) Transfer(ctx context.Context, txType string, amount int64) {
	in.transfers.Add(ctx, 1, metric.WithAttributes(attribute.String("type", txType)))
	switch txType {
	case "money_creation":
		in.minted.Add(ctx, amount)
	case "money_destruction":
		in.destroyed.Add(ctx, amount)
	}
}

func (in *Instruments) Failure(ctx context.Context, reason string) {
	in.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (in *Instruments) IntegrityViolation(ctx context.Context, kind string) {
	in.integrity.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (in *Instruments) AuditDelta(ctx context.Context, delta int64) {
	if delta < 0 {
		delta = -delta
	}
	in.auditDeltaAbs.Record(ctx, delta)
}
