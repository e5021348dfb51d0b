package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew(t *testing.T) {
	in, err := New(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		in.Transfer(ctx, "money_creation", 100)
		in.Transfer(ctx, "transfer", 5)
		in.Failure(ctx, "INSUFFICIENT_FUNDS")
		in.IntegrityViolation(ctx, "UNRECONCILED_LOSS")
		in.AuditDelta(ctx, -7)
	})
}

func TestGlobal(t *testing.T) {
	in, err := Global()
	require.NoError(t, err)
	assert.NotNil(t, in)
	assert.NotNil(t, Noop())
}
