// Package http exposes extraction as an HTTP service.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/config"
	"github.com/fyrsmithlabs/actionitems/internal/logging"
	"github.com/fyrsmithlabs/actionitems/internal/task"
	"github.com/fyrsmithlabs/actionitems/internal/telemetry"
	"github.com/fyrsmithlabs/actionitems/internal/transcript"
)

// Extractor is the extraction service the server fronts.
type Extractor interface {
	ExtractAt(ctx context.Context, doc *transcript.Document, ref time.Time) *task.Result
}

// Server provides HTTP endpoints for actionitems.
type Server struct {
	echo      *echo.Echo
	extractor Extractor
	logger    *zap.Logger
	config    *Config
	metrics   *serverMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	MaxBodyBytes int64
	// Version is reported by /health.
	Version string
	// Telemetry, when set, adds export health to /health.
	Telemetry *telemetry.Telemetry
}

// NewServer creates a new HTTP server.
func NewServer(extractor Extractor, logger *zap.Logger, cfg *Config) (*Server, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8080,
		}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := newServerMetrics(nil, logger)

	e.Use(middleware.Recover())
	e.Use(requestID)
	e.Use(metrics.middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:      e,
		extractor: extractor,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}
	s.registerRoutes()

	return s, nil
}

// requestID propagates X-Request-ID, replacing missing or unusable values
// with a fresh uuid, and tags the request context with it.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rid := req.Header.Get(echo.HeaderXRequestID)
		if !logging.ValidID(rid) {
			rid = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, rid)
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), rid)))
		return next(c)
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/extract", s.handleExtract, middleware.BodyLimit(strconv.FormatInt(s.config.MaxBodyBytes, 10)))
}

// handleHealth always answers 200. Telemetry problems are reported but do
// not make the service unhealthy.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if t := s.config.Telemetry; t != nil {
		switch h := t.Health(); {
		case !t.IsEnabled():
			resp.Telemetry = "off"
		case h.Degraded:
			resp.Telemetry = "degraded"
		default:
			resp.Telemetry = "ok"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleExtract runs extraction over the posted transcript document.
func (s *Server) handleExtract(c echo.Context) error {
	ctx := c.Request().Context()
	log := s.logger.With(logging.ContextFields(ctx)...)

	ref, err := config.ParseReferenceDate(c.QueryParam("reference_date"))
	if err != nil {
		s.metrics.recordRejected(ctx, "reference_date")
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	parsed, err := transcript.Parse(c.Request().Body)
	if err != nil {
		log.Warn("invalid extract request", zap.Error(err))
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			s.metrics.recordRejected(ctx, "body_too_large")
			return he
		case errors.Is(err, transcript.ErrEmptyDocument):
			s.metrics.recordRejected(ctx, "empty_document")
			return echo.NewHTTPError(http.StatusBadRequest, "transcript field is required")
		default:
			s.metrics.recordRejected(ctx, "invalid_document")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid transcript document")
		}
	}
	if parsed.ErrorCount > 0 {
		log.Warn("transcript segments could not be decoded",
			zap.Int("count", parsed.ErrorCount),
		)
	}

	result := s.extractor.ExtractAt(ctx, parsed.Document, ref)
	s.metrics.recordExtract(ctx, parsed.Document.Len(), result.TotalItems)
	return c.JSON(http.StatusOK, ExtractResponse{
		Result:        result,
		Summary:       task.Summarize(result.ActionItems),
		SegmentErrors: parsed.ErrorCount,
		ReferenceDate: formatReference(ref),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

func formatReference(ref time.Time) string {
	if ref.IsZero() {
		return ""
	}
	return ref.Format(task.DateLayout)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
