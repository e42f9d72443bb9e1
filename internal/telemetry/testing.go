package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// Recorder is a Telemetry that keeps spans and metrics in memory so tests
// can assert on what a pipeline stage emitted.
type Recorder struct {
	*Telemetry

	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

// NewRecorder returns an in-memory Telemetry. It is not installed as the
// otel global; see Install.
func NewRecorder() *Recorder {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	r := &Recorder{
		Telemetry: &Telemetry{
			config:         cfg,
			logger:         zap.NewNop(),
			tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(spans)),
			meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		spans:  spans,
		reader: reader,
	}
	r.healthy.Store(true)
	return r
}

// Install makes r the global tracer and meter provider until tb ends.
// Components cache tracers and meters at construction, so build them after
// Install.
func (r *Recorder) Install(tb testing.TB) *Recorder {
	tb.Helper()
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(r.tracerProvider)
	otel.SetMeterProvider(r.meterProvider)
	tb.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})
	return r
}

// Spans returns the ended spans in end order.
func (r *Recorder) Spans() []trace.ReadOnlySpan {
	return r.spans.Ended()
}

// SpansNamed returns the ended spans called name.
func (r *Recorder) SpansNamed(name string) []trace.ReadOnlySpan {
	var out []trace.ReadOnlySpan
	for _, s := range r.spans.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

// RequireSpan fails tb unless a span called name ended, and returns the last
// one.
func (r *Recorder) RequireSpan(tb testing.TB, name string) trace.ReadOnlySpan {
	tb.Helper()
	spans := r.SpansNamed(name)
	require.NotEmptyf(tb, spans, "span %q not recorded; have %v", name, r.spanNames())
	return spans[len(spans)-1]
}

func (r *Recorder) spanNames() []string {
	ended := r.spans.Ended()
	names := make([]string, len(ended))
	for i, s := range ended {
		names[i] = s.Name()
	}
	return names
}

// SpanAttr returns the value of key on span as a plain Go value: string,
// int64, float64, bool, or the slice form for array attributes.
func SpanAttr(span trace.ReadOnlySpan, key string) (any, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return plain(kv.Value), true
		}
	}
	return nil, false
}

func plain(v attribute.Value) any {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}

// Metric collects the current metric state and returns the instrument called
// name, failing tb when it was never recorded.
func (r *Recorder) Metric(tb testing.TB, name string) metricdata.Metrics {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(tb, r.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	require.Failf(tb, "metric not recorded", "metric %q", name)
	return metricdata.Metrics{}
}
