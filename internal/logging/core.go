package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

const otelScope = "github.com/fyrsmithlabs/actionitems"

// newCore tees the enabled sinks and applies sampling. w replaces stderr in
// tests.
func newCore(cfg *Config, provider log.LoggerProvider, w io.Writer) (zapcore.Core, error) {
	var sinks []zapcore.Core
	if cfg.Output.Stderr {
		if w == nil {
			w = os.Stderr
		}
		enc, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if err != nil {
			return nil, fmt.Errorf("redaction: %w", err)
		}
		sinks = append(sinks, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), cfg.Level))
	}
	if cfg.Output.OTEL && provider != nil {
		sinks = append(sinks, otelzap.NewCore(otelScope, otelzap.WithLoggerProvider(provider)))
	}
	if len(sinks) == 0 {
		return nil, errors.New("no log sink available")
	}
	return sample(zapcore.NewTee(sinks...), cfg.Sampling), nil
}

// sample thins entries below error level. Errors always pass, so a noisy
// transcript cannot hide a failure.
func sample(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	quiet := zapcore.NewSamplerWithOptions(
		band{Core: core, lo: zapcore.DebugLevel - 10, hi: zapcore.WarnLevel},
		cfg.Tick, cfg.Initial, cfg.Thereafter,
	)
	loud := band{Core: core, lo: zapcore.ErrorLevel, hi: zapcore.FatalLevel}
	return zapcore.NewTee(loud, quiet)
}

// band restricts a core to levels in [lo, hi].
type band struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (b band) Enabled(l zapcore.Level) bool {
	return l >= b.lo && l <= b.hi && b.Core.Enabled(l)
}

func (b band) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if b.Enabled(e.Level) {
		return b.Core.Check(e, ce)
	}
	return ce
}

func (b band) With(fields []zapcore.Field) zapcore.Core {
	return band{Core: b.Core.With(fields), lo: b.lo, hi: b.hi}
}
