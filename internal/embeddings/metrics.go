package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/actionitems/internal/embeddings"

// Instrumented wraps a Provider with a span and metrics per call.
type Instrumented struct {
	Provider
	backend string
	model   string

	tracer   trace.Tracer
	duration metric.Float64Histogram
	texts    metric.Int64Histogram
	failures metric.Int64Counter
}

// Instrument wraps p using the otel globals current when it is called.
// Instruments that fail to register are skipped.
func Instrument(p Provider, backend, model string, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)
	in := &Instrumented{
		Provider: p,
		backend:  backend,
		model:    model,
		tracer:   otel.Tracer(instrumentationName),
	}

	var errs []error
	var err error
	in.duration, err = meter.Float64Histogram("actionitems.embeddings.duration_seconds",
		metric.WithDescription("Time to embed one batch of task descriptions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10))
	errs = append(errs, err)
	in.texts, err = meter.Int64Histogram("actionitems.embeddings.batch_size",
		metric.WithDescription("Task descriptions per embedding call."),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250))
	errs = append(errs, err)
	in.failures, err = meter.Int64Counter("actionitems.embeddings.errors_total",
		metric.WithDescription("Failed embedding calls."),
		metric.WithUnit("{error}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		logger.Warn("some embedding instruments are unavailable", zap.Error(err))
	}
	return in
}

// EmbedDocuments delegates to the wrapped provider and records the call.
func (in *Instrumented) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.backend", in.backend),
		attribute.String("embeddings.model", in.model),
	}
	ctx, span := in.tracer.Start(ctx, "embeddings.embed", trace.WithAttributes(
		append(attrs, attribute.Int("embeddings.texts", len(texts)))...,
	))
	defer span.End()

	start := time.Now()
	vectors, err := in.Provider.EmbedDocuments(ctx, texts)
	set := metric.WithAttributes(attrs...)

	if in.duration != nil {
		in.duration.Record(ctx, time.Since(start).Seconds(), set)
	}
	if in.texts != nil && len(texts) > 0 {
		in.texts.Record(ctx, int64(len(texts)), set)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		if in.failures != nil {
			in.failures.Add(ctx, 1, set)
		}
	}
	return vectors, err
}

// Unwrap returns the wrapped provider.
func (in *Instrumented) Unwrap() Provider {
	return in.Provider
}
