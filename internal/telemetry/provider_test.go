package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()

	res := newResource(cfg)
	require.NotNil(t, res)

	attrs := map[string]string{}
	for _, attr := range res.Attributes() {
		attrs[string(attr.Key)] = attr.Value.AsString()
	}
	assert.Equal(t, "actionitems", attrs["service.name"])
	assert.Equal(t, "dev", attrs["service.version"])
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		assert.Contains(t, newSampler(tt.rate).Description(), tt.want)
	}
}

func TestCollectOptions(t *testing.T) {
	assert.Equal(t, options{}, collectOptions(nil))

	exp := tracetest.NewInMemoryExporter()
	o := collectOptions([]Option{WithTraceExporter(exp), WithMetricExporter(nil)})
	assert.Same(t, exp, o.traceExporter)
	assert.Nil(t, o.metricExporter)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Enabled = false

	mp, err := newMeterProvider(context.Background(), cfg, newResource(cfg), options{})
	require.NoError(t, err)
	assert.Nil(t, mp)
}

func TestNewTracerProvider_OTLPIsLazy(t *testing.T) {
	for _, protocol := range []string{ProtocolGRPC, ProtocolHTTP} {
		t.Run(protocol, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Protocol = protocol

			tp, err := newTracerProvider(context.Background(), cfg, newResource(cfg), options{})
			require.NoError(t, err, "exporters must not dial until the first export")

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = tp.Shutdown(ctx)
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}
