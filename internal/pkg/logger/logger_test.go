package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return Wrap(zap.New(core), "kyc-service"), logs
}

func TestWithContextAddsKnownKeys(t *testing.T) {
	l, logs := newObserved()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, CustomerRefKey, "ref-1")

	l.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "ref-1", fields["customer_ref"])
	assert.NotContains(t, fields, "subject")
}

func TestWithContextUsesSpanContext(t *testing.T) {
	l, logs := newObserved()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, TraceIDKey, "ignored")

	l.WithContext(ctx).Info("hello")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, sc.SpanID().String(), fields["span_id"])
}

func TestEventHelpers(t *testing.T) {
	l, logs := newObserved()

	l.RiskAssessed("ref-1", 40, 46, "MEDIUM", false, 12)
	l.OracleFallback("ref-1", errors.New("timeout"))

	require.Equal(t, 2, logs.Len())
	assessed := logs.All()[0]
	assert.Equal(t, "risk assessed", assessed.Message)
	assert.Equal(t, int64(46), assessed.ContextMap()["adjusted_score"])

	fallback := logs.All()[1]
	assert.Equal(t, zap.WarnLevel, fallback.Level)
	assert.Equal(t, "timeout", fallback.ContextMap()["error"])
}

func TestNewDevelopment(t *testing.T) {
	l, err := New("kyc-service", "development", true)
	require.NoError(t, err)
	assert.NotNil(t, l.Named("sub"))
}
