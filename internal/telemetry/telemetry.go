package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Telemetry holds the SDK providers of one process. A provider that cannot
// be built is left out and the instance is marked degraded; extraction never
// fails because a collector is unreachable.
type Telemetry struct {
	config *Config
	logger *zap.Logger

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	healthy  atomic.Bool
	degraded atomic.Bool
}

// sdkProvider is what Shutdown and ForceFlush need from both SDK providers.
type sdkProvider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// New builds the providers described by cfg and registers them as the otel
// globals. Components pick them up through otel.Tracer and otel.Meter. With
// cfg.Enabled false nothing is registered.
func New(ctx context.Context, cfg *Config, logger *zap.Logger, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("telemetry config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Telemetry{config: cfg, logger: logger}
	t.healthy.Store(true)
	if !cfg.Enabled {
		return t, nil
	}

	o := collectOptions(opts)
	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res, o); err != nil {
		t.degrade("traces", err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}
	if mp, err := newMeterProvider(ctx, cfg, res, o); err != nil {
		t.degrade("metrics", err)
	} else if mp != nil {
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	logger.Info("telemetry enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Float64("sample_rate", cfg.Sampling.Rate),
		zap.Bool("metrics", t.meterProvider != nil),
	)
	return t, nil
}

func (t *Telemetry) degrade(signal string, err error) {
	t.degraded.Store(true)
	t.logger.Warn("telemetry signal disabled", zap.String("signal", signal), zap.Error(err))
}

func (t *Telemetry) providers() []sdkProvider {
	var ps []sdkProvider
	if t.tracerProvider != nil {
		ps = append(ps, t.tracerProvider)
	}
	if t.meterProvider != nil {
		ps = append(ps, t.meterProvider)
	}
	return ps
}

// Tracer returns a tracer from this instance, or from the global provider
// when tracing is off. Safe on a nil receiver.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t != nil && t.tracerProvider != nil {
		return t.tracerProvider.Tracer(name, opts...)
	}
	return otel.Tracer(name, opts...)
}

// Meter is the metric counterpart of Tracer.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t != nil && t.meterProvider != nil {
		return t.meterProvider.Meter(name, opts...)
	}
	return otel.Meter(name, opts...)
}

// ForceFlush exports whatever is buffered.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	for _, p := range t.providers() {
		errs = append(errs, p.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops every provider. If ctx has no deadline the
// configured shutdown timeout bounds it.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}
	var errs []error
	for _, p := range t.providers() {
		if err := p.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	t.healthy.Store(false)
	return errors.Join(errs...)
}

// HealthStatus is surfaced on the HTTP health endpoint. Degraded means at
// least one signal failed to start.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
}

func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true}
	}
	return HealthStatus{Healthy: t.healthy.Load(), Degraded: t.degraded.Load()}
}

// IsEnabled reports whether export is configured and not yet shut down.
func (t *Telemetry) IsEnabled() bool {
	return t != nil && t.config != nil && t.config.Enabled && t.healthy.Load()
}
