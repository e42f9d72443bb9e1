package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below debug. The extractor logs individual rule hits at
// this level.
const TraceLevel = zapcore.DebugLevel - 1

// LevelFromString parses a zap level name or "trace". Unknown names return
// InfoLevel with an error.
func LevelFromString(s string) (zapcore.Level, error) {
	if strings.EqualFold(s, "trace") {
		return TraceLevel, nil
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Logger is a zap logger whose methods take a context and prepend the
// correlation fields found on it.
type Logger struct {
	zap    *zap.Logger
	framed *zap.Logger
	config *Config
}

// wrapperFrames is the depth of Logger.log plus the exported method above it.
const wrapperFrames = 2

func wrap(z *zap.Logger, cfg *Config) *Logger {
	return &Logger{zap: z, framed: z.WithOptions(zap.AddCallerSkip(wrapperFrames)), config: cfg}
}

// NewLogger builds a logger writing to stderr and, when provider is non-nil
// and cfg.Output.OTEL is set, to the OpenTelemetry log pipeline.
func NewLogger(cfg *Config, provider log.LoggerProvider) (*Logger, error) {
	return newLogger(cfg, provider, nil)
}

func newLogger(cfg *Config, provider log.LoggerProvider, w io.Writer) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	core, err := newCore(cfg, provider, w)
	if err != nil {
		return nil, err
	}

	var opts []zap.Option
	if cfg.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Caller.Skip))
	}
	if cfg.Stacktrace.Level != zapcore.InfoLevel {
		opts = append(opts, zap.AddStacktrace(cfg.Stacktrace.Level))
	}
	for k, v := range cfg.Fields {
		opts = append(opts, zap.Fields(zap.String(k, v)))
	}
	return wrap(zap.New(core, opts...), cfg), nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if l == TraceLevel {
			enc.AppendString("trace")
			return
		}
		enc.AppendString(l.String())
	}
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func (l *Logger) log(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	if ce := l.framed.Check(level, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, TraceLevel, msg, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

// With returns a child carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return wrap(l.zap.With(fields...), l.config)
}

// Named appends name to the logger name.
func (l *Logger) Named(name string) *Logger {
	return wrap(l.zap.Named(name), l.config)
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Underlying returns the zap logger for packages that take *zap.Logger.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}

// Sync flushes buffered entries. Syncing a terminal fails with EINVAL or
// ENOTTY on Linux; those errors are dropped.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY) {
		return nil
	}
	return err
}
