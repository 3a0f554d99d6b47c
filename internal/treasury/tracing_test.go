package treasury

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"YieldVault/internal/apperr"
)

func TestOperationsEmitSpans(t *testing.T) {
	ctx := context.Background()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer tp.Shutdown(ctx)

	f := newMemoryFixture(t)
	WithTracer(tp.Tracer("test"))(f.ctl)

	f.deposit(t, alice, usd(10))
	require.ErrorIs(t, f.ctl.ExecuteTransfer(ctx, f.admin, usdc, aave, usd(1)), apperr.ErrUnauthorized)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "treasury.Deposit", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, "treasury.ExecuteTransfer", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "vault:2", ended[1].Status().Description)
}
