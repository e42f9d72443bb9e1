package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/actionitems/internal/config"
)

func TestNew_DisabledTelemetry(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := &Config{Enabled: true}

	tel, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "telemetry config")
}

func TestNew_EnabledWithExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	core, logs := observer.New(zap.InfoLevel)
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.Enabled = false
	exp := tracetest.NewInMemoryExporter()

	tel, err := New(context.Background(), cfg, zap.New(core), WithTraceExporter(exp))
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.False(t, tel.Health().Degraded)

	_, span := otel.Tracer("test").Start(context.Background(), "extractor.extract")
	span.End()
	require.NoError(t, tel.ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "extractor.extract", spans[0].Name)

	entries := logs.FilterMessage("telemetry enabled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "grpc", entries[0].ContextMap()["protocol"])

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
	})

	assert.Equal(t, HealthStatus{Healthy: false, Degraded: true}, tel.Health())
}

func TestTelemetry_ShutdownWithTimeout(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Shutdown.Timeout = config.Duration(100 * time.Millisecond)

	tel, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Health().Healthy)
}

func TestRecorder_SpanAttributes(t *testing.T) {
	rec := NewRecorder()

	_, span := rec.Tracer("test").Start(context.Background(), "arbiter.clarify")
	span.SetAttributes(
		attribute.String("task.id", "abc"),
		attribute.Int64("arbiter.gated", 3),
		attribute.Float64("arbiter.threshold", 0.7),
		attribute.Bool("task.valid", false),
	)
	span.End()

	got := rec.RequireSpan(t, "arbiter.clarify")
	for key, want := range map[string]any{
		"task.id":           "abc",
		"arbiter.gated":     int64(3),
		"arbiter.threshold": 0.7,
		"task.valid":        false,
	} {
		v, ok := SpanAttr(got, key)
		require.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}
	_, ok := SpanAttr(got, "missing")
	assert.False(t, ok)
	assert.Empty(t, rec.SpansNamed("extractor.extract"))
}

func TestRecorder_Metric(t *testing.T) {
	rec := NewRecorder()

	counter, err := rec.Meter("test").Int64Counter("actionitems.embeddings.requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	m := rec.Metric(t, "actionitems.embeddings.requests")
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	require.NoError(t, rec.Shutdown(context.Background()))
}

func TestRecorder_Install(t *testing.T) {
	rec := NewRecorder()
	before := otel.GetTracerProvider()

	t.Run("installed", func(t *testing.T) {
		rec.Install(t)
		_, span := otel.Tracer("test").Start(context.Background(), "global-span")
		span.End()
		rec.RequireSpan(t, "global-span")
	})

	assert.Equal(t, before, otel.GetTracerProvider(), "provider restored after the subtest")
}
