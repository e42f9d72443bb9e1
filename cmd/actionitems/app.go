package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/config"
	"github.com/fyrsmithlabs/actionitems/internal/dates"
	"github.com/fyrsmithlabs/actionitems/internal/dedup"
	"github.com/fyrsmithlabs/actionitems/internal/embeddings"
	"github.com/fyrsmithlabs/actionitems/internal/extractor"
	"github.com/fyrsmithlabs/actionitems/internal/llm"
	"github.com/fyrsmithlabs/actionitems/internal/logging"
	"github.com/fyrsmithlabs/actionitems/internal/patterns"
	"github.com/fyrsmithlabs/actionitems/internal/people"
	"github.com/fyrsmithlabs/actionitems/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// app holds the process-wide dependencies built from one Config.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	telemetry  *telemetry.Telemetry
	embeddings embeddings.Provider
	library    *patterns.Library
	extractor  *extractor.Extractor
}

// loadConfig reads the config file and environment, then applies the global
// flag overrides.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	return cfg, nil
}

// newApp wires logging, telemetry and the extractor. The caller must close
// the returned app.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	zl := logger.Underlying()

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version), zl.Named("telemetry"))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}
	if err := a.buildExtractor(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildExtractor() error {
	cfg := a.cfg
	zl := a.logger.Underlying()

	opts, err := extractorOptions(cfg)
	if err != nil {
		return err
	}

	if a.library, err = patterns.LoadFile(cfg.Patterns.File); err != nil {
		return fmt.Errorf("loading patterns: %w", err)
	}

	names, err := nameValidator(cfg.Names, zl.Named("people"))
	if err != nil {
		return err
	}

	deps := extractor.Dependencies{
		Library: a.library,
		Names:   names,
	}
	if cfg.Extraction.AdvancedDates == nil || *cfg.Extraction.AdvancedDates {
		deps.DateParser = dates.NewWhenParser()
	}

	if opts.Dedup.Strategy == dedup.StrategySemantic {
		a.embeddings, err = embeddings.NewProvider(embeddings.ProviderConfig{
			Provider:  cfg.Embeddings.Provider,
			Model:     cfg.Embeddings.Model,
			BaseURL:   cfg.Embeddings.BaseURL,
			APIKey:    cfg.Embeddings.APIKey.Value(),
			Timeout:   cfg.Embeddings.Timeout.Duration(),
			CacheDir:  cfg.Embeddings.CacheDir,
			CacheSize: cfg.Embeddings.CacheSize,
		}, zl.Named("embeddings"))
		if err != nil {
			// Semantic dedup falls back to lexical without a provider.
			zl.Warn("embedding provider unavailable", zap.Error(err))
			a.embeddings = nil
		}
		deps.Embeddings = a.embeddings
	}

	if opts.Arbiter.Enabled || opts.Method == extractor.MethodLLM {
		deps.Completion, err = completionService(cfg.LLM, zl.Named("llm"))
		if err != nil {
			return err
		}
	}

	a.extractor, err = extractor.New(opts, deps, zl.Named("extractor"))
	if err != nil {
		return fmt.Errorf("creating extractor: %w", err)
	}

	zl.Debug("dependencies ready",
		zap.String("patterns.version", a.library.Version()),
		zap.String("names.validator", cfg.Names.Validator),
		zap.Bool("telemetry", a.telemetry.IsEnabled()),
	)
	return nil
}

// extractorOptions maps the extraction sections of cfg onto extractor
// options.
func extractorOptions(cfg *config.Config) (extractor.Options, error) {
	ref, err := cfg.ReferenceTime()
	if err != nil {
		return extractor.Options{}, err
	}
	opts := extractor.DefaultOptions()
	opts.ReferenceTime = ref
	opts.Method = extractor.Method(cfg.Extraction.Method)
	opts.Workers = cfg.Extraction.Workers
	opts.MinDescriptionLength = cfg.Extraction.MinDescriptionLength
	opts.ReviewThreshold = cfg.Extraction.ReviewThreshold
	opts.DateTimeout = cfg.Extraction.DateTimeout.Duration()
	opts.Dedup = extractor.DedupOptions{
		Strategy:  cfg.Dedup.Strategy,
		Threshold: cfg.Dedup.Threshold,
	}
	opts.Arbiter = extractor.ArbiterOptions{
		Enabled:             cfg.Arbiter.Enabled,
		ConfidenceThreshold: cfg.Arbiter.ConfidenceThreshold,
		Concurrency:         cfg.Arbiter.Concurrency,
		Timeout:             cfg.Arbiter.Timeout.Duration(),
	}
	return opts, nil
}

func nameValidator(c config.NamesConfig, logger *zap.Logger) (people.NameValidator, error) {
	gopts := []people.GazetteerOption{people.WithStrict(c.Strict)}
	if c.MinLength > 0 {
		gopts = append(gopts, people.WithMinLength(c.MinLength))
	}

	gazetteer := people.DefaultGazetteer(gopts...)
	if c.GazetteerFile != "" {
		var err error
		if gazetteer, err = people.LoadGazetteer(c.GazetteerFile, gopts...); err != nil {
			return nil, fmt.Errorf("loading gazetteer: %w", err)
		}
	}

	if c.Validator == config.ValidatorNER {
		return people.NewNERValidator(gazetteer, logger), nil
	}
	return gazetteer, nil
}

// completionService builds the LLM client. A disabled or unconfigured
// provider yields nil, which the extractor treats as "rules only".
func completionService(c config.LLMConfig, logger *zap.Logger) (llm.CompletionService, error) {
	svc, err := llm.New(llm.Config{
		Provider:        c.Provider,
		Model:           c.Model,
		APIKey:          c.APIKey.Value(),
		BaseURL:         c.BaseURL,
		Timeout:         c.Timeout.Duration(),
		RateLimit:       c.RateLimit,
		Burst:           c.Burst,
		MaxRetries:      c.MaxRetries,
		GroqAPIKey:      c.GroqAPIKey.Value(),
		OpenAIAPIKey:    c.OpenAIAPIKey.Value(),
		AnthropicAPIKey: c.AnthropicAPIKey.Value(),
	}, logger)
	if errors.Is(err, llm.ErrNotConfigured) {
		logger.Info("no completion service configured", zap.String("provider", c.Provider))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating completion service: %w", err)
	}
	logger.Debug("completion service ready",
		zap.String("provider", c.Provider),
		zap.String("model", c.Model),
		logging.Secret("api_key", c.APIKey),
	)
	return svc, nil
}

// close flushes telemetry and logs and releases the embedding model.
func (a *app) close() {
	if a.embeddings != nil {
		if err := a.embeddings.Close(); err != nil {
			a.logger.Underlying().Warn("closing embedding provider", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Underlying().Warn("telemetry shutdown", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
