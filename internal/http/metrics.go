package http

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/actionitems/internal/http"

// serverMetrics records request and extraction payload metrics through the
// global otel meter. Instruments that fail to register stay nil and are
// skipped.
type serverMetrics struct {
	requests  metric.Int64Counter
	latency   metric.Float64Histogram
	inFlight  metric.Int64UpDownCounter
	segments  metric.Int64Histogram
	items     metric.Int64Histogram
	rejection metric.Int64Counter
}

func newServerMetrics(meter metric.Meter, logger *zap.Logger) *serverMetrics {
	if meter == nil {
		meter = otel.Meter(httpInstrumentationName)
	}
	m := &serverMetrics{}

	var errs []error
	var err error
	m.requests, err = meter.Int64Counter("actionitems.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status."),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	m.latency, err = meter.Float64Histogram("actionitems.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	errs = append(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("actionitems.http.active_requests",
		metric.WithDescription("Requests being served."),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	m.segments, err = meter.Int64Histogram("actionitems.http.extract.segments",
		metric.WithDescription("Transcript segments per extract request."),
		metric.WithUnit("{segment}"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 250, 500, 1000, 5000))
	errs = append(errs, err)

	m.items, err = meter.Int64Histogram("actionitems.http.extract.action_items",
		metric.WithDescription("Action items returned per extract request."),
		metric.WithUnit("{item}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 25, 50, 100))
	errs = append(errs, err)

	m.rejection, err = meter.Int64Counter("actionitems.http.extract.rejected_total",
		metric.WithDescription("Extract requests rejected before extraction, by reason."),
		metric.WithUnit("{request}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		logger.Warn("some http instruments are unavailable", zap.Error(err))
	}
	return m
}

// middleware counts and times every request. The route pattern is the label,
// so unmatched paths collapse into "/".
func (m *serverMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("route", routeLabel(c.Path())),
				attribute.Int("status", c.Response().Status),
			)
			if m.requests != nil {
				m.requests.Add(ctx, 1, attrs)
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			return nil
		}
	}
}

func (m *serverMetrics) recordExtract(ctx context.Context, segments, items int) {
	if m.segments != nil {
		m.segments.Record(ctx, int64(segments))
	}
	if m.items != nil {
		m.items.Record(ctx, int64(items))
	}
}

func (m *serverMetrics) recordRejected(ctx context.Context, reason string) {
	if m.rejection != nil {
		m.rejection.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func routeLabel(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
