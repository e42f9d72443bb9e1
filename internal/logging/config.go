package logging

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/actionitems/internal/config"
)

// Config is the full logger configuration. Users set Level, Format and
// Output.OTEL through the application config; the rest keeps NewDefaultConfig
// values.
type Config struct {
	Level      zapcore.Level
	Format     string // json or console
	Output     OutputConfig
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace StacktraceConfig
	// Fields are attached to every entry.
	Fields    map[string]string
	Redaction RedactionConfig
}

// OutputConfig selects sinks. Stdout carries command results, so the console
// sink writes to stderr.
type OutputConfig struct {
	Stderr bool
	// OTEL bridges entries to an OpenTelemetry log provider.
	OTEL bool
}

// SamplingConfig keeps the first Initial entries with a given message per
// Tick, then every Thereafter-th. Errors are exempt.
type SamplingConfig struct {
	Enabled    bool
	Tick       time.Duration
	Initial    int
	Thereafter int
}

// CallerConfig adds the caller's file and line. Skip counts extra frames for
// helpers that wrap Logger.
type CallerConfig struct {
	Enabled bool
	Skip    int
}

// StacktraceConfig attaches stacks at Level and above.
type StacktraceConfig struct {
	Level zapcore.Level
}

// RedactionConfig lists what the encoder hides. Fields are credential keys
// whose values are dropped. Content keys carry meeting text and are logged as
// a length only. Patterns mask any string value they match.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Content  []string
	Patterns []string
}

// NewDefaultConfig returns JSON logging at info to stderr with sampling,
// caller info and redaction on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:      zapcore.InfoLevel,
		Format:     "json",
		Output:     OutputConfig{Stderr: true},
		Sampling:   SamplingConfig{Enabled: true, Tick: time.Second, Initial: 100, Thereafter: 10},
		Caller:     CallerConfig{Enabled: true},
		Stacktrace: StacktraceConfig{Level: zapcore.ErrorLevel},
		Fields:     map[string]string{"service": "actionitems"},
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"password", "secret", "token", "api_key",
				"authorization", "bearer", "credential",
			},
			Content: []string{"text", "source_text", "description", "prompt", "completion"},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
				`\b(?:sk-|sk-ant-|gsk_)[A-Za-z0-9-]{20,}`,
			},
		},
	}
}

// Validate rejects configs the logger cannot be built from.
func (c *Config) Validate() error {
	switch {
	case c.Format != "json" && c.Format != "console":
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	case !c.Output.Stderr && !c.Output.OTEL:
		return errors.New("at least one output must be enabled (stderr or otel)")
	case c.Sampling.Enabled && c.Sampling.Tick <= 0:
		return errors.New("sampling tick must be > 0 when sampling enabled")
	case c.Caller.Enabled && c.Caller.Skip < 0:
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip)
	}
	if c.Redaction.Enabled {
		if _, err := newRedactor(c.Redaction); err != nil {
			return err
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("static field %q=%q: key and value are required", k, v)
		}
	}
	return nil
}

// FromConfig overlays the user-facing logging section on the defaults.
func FromConfig(c config.LoggingConfig) (*Config, error) {
	cfg := NewDefaultConfig()
	if c.Level != "" {
		level, err := LevelFromString(c.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = level
	}
	if c.Format != "" {
		cfg.Format = c.Format
	}
	cfg.Output.OTEL = c.OTEL
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
