// Package config provides configuration loading for actionitems.
//
// Configuration comes from an optional YAML file overridden by environment
// variables. Every field has a default, so an empty configuration is valid
// and selects rule-based extraction with lexical deduplication.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/actionitems/internal/dedup"
	"github.com/fyrsmithlabs/actionitems/internal/embeddings"
	"github.com/fyrsmithlabs/actionitems/internal/llm"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Name validators.
const (
	ValidatorGazetteer = "gazetteer"
	ValidatorNER       = "ner"
)

// Config is the complete actionitems configuration.
type Config struct {
	Extraction ExtractionConfig `koanf:"extraction"`
	Dedup      DedupConfig      `koanf:"dedup"`
	Arbiter    ArbiterConfig    `koanf:"arbiter"`
	Names      NamesConfig      `koanf:"names"`
	Patterns   PatternsConfig   `koanf:"patterns"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	LLM        LLMConfig        `koanf:"llm"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Server     ServerConfig     `koanf:"server"`
}

// ExtractionConfig tunes the pipeline.
type ExtractionConfig struct {
	// ReferenceDate anchors relative dates. YYYY-MM-DD or RFC 3339; empty
	// means the time of each run.
	ReferenceDate        string   `koanf:"reference_date"`
	Method               string   `koanf:"method"`
	Workers              int      `koanf:"workers"`
	MinDescriptionLength int      `koanf:"min_description_length"`
	ReviewThreshold      float64  `koanf:"review_threshold"`
	DateTimeout          Duration `koanf:"date_timeout"`
	// AdvancedDates enables the natural-language date parser.
	AdvancedDates *bool `koanf:"advanced_dates"`
}

// DedupConfig selects the deduplication strategy.
type DedupConfig struct {
	Strategy  string  `koanf:"strategy"`
	Threshold float64 `koanf:"threshold"`
}

// ArbiterConfig enables arbitration. The completion service it uses is
// configured in LLMConfig.
type ArbiterConfig struct {
	Enabled             bool     `koanf:"enabled"`
	ConfidenceThreshold float64  `koanf:"confidence_threshold"`
	Concurrency         int      `koanf:"concurrency"`
	Timeout             Duration `koanf:"timeout"`
}

// NamesConfig selects how candidate names are validated.
type NamesConfig struct {
	Validator     string `koanf:"validator"`
	GazetteerFile string `koanf:"gazetteer_file"`
	Strict        bool   `koanf:"strict"`
	MinLength     int    `koanf:"min_length"`
}

// PatternsConfig points at an optional pattern override file.
type PatternsConfig struct {
	File string `koanf:"file"`
}

// EmbeddingsConfig configures the provider used by semantic deduplication.
type EmbeddingsConfig struct {
	Provider  string   `koanf:"provider"`
	Model     string   `koanf:"model"`
	BaseURL   string   `koanf:"base_url"`
	APIKey    Secret   `koanf:"api_key"`
	Timeout   Duration `koanf:"timeout"`
	CacheDir  string   `koanf:"cache_dir"`
	CacheSize int      `koanf:"cache_size"`
}

// LLMConfig configures the completion service shared by the arbiter and
// the few-shot method.
type LLMConfig struct {
	Provider        string   `koanf:"provider"`
	Model           string   `koanf:"model"`
	BaseURL         string   `koanf:"base_url"`
	APIKey          Secret   `koanf:"api_key"`
	Timeout         Duration `koanf:"timeout"`
	RateLimit       float64  `koanf:"rate_limit"`
	Burst           int      `koanf:"burst"`
	MaxRetries      int      `koanf:"max_retries"`
	OpenAIAPIKey    Secret   `koanf:"openai_api_key"`
	AnthropicAPIKey Secret   `koanf:"anthropic_api_key"`
	GroqAPIKey      Secret   `koanf:"groq_api_key"`
}

// LoggingConfig holds the logger settings exposed to users. Finer knobs
// keep the logging package defaults.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// OTEL also sends entries to the registered OpenTelemetry log provider.
	OTEL bool `koanf:"otel"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"`
	ServiceName    string   `koanf:"service_name"`
	Insecure       bool     `koanf:"insecure"`
	SampleRate     float64  `koanf:"sample_rate"`
	Metrics        bool     `koanf:"metrics"`
	ExportInterval Duration `koanf:"export_interval"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64    `koanf:"max_body_bytes"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Extraction
	if cfg.Extraction.Method == "" {
		cfg.Extraction.Method = "rules"
	}
	if cfg.Extraction.Workers == 0 {
		cfg.Extraction.Workers = 1
	}
	if cfg.Extraction.MinDescriptionLength == 0 {
		cfg.Extraction.MinDescriptionLength = 10
	}
	if cfg.Extraction.ReviewThreshold == 0 {
		cfg.Extraction.ReviewThreshold = 0.5
	}
	if cfg.Extraction.DateTimeout == 0 {
		cfg.Extraction.DateTimeout = Duration(2 * time.Second)
	}
	if cfg.Extraction.AdvancedDates == nil {
		enabled := true
		cfg.Extraction.AdvancedDates = &enabled
	}

	// Dedup; a zero threshold is left for the strategy to pick.
	if cfg.Dedup.Strategy == "" {
		cfg.Dedup.Strategy = dedup.StrategyLexical
	}

	// Arbiter
	if cfg.Arbiter.ConfidenceThreshold == 0 {
		cfg.Arbiter.ConfidenceThreshold = 0.7
	}
	if cfg.Arbiter.Concurrency == 0 {
		cfg.Arbiter.Concurrency = 4
	}
	if cfg.Arbiter.Timeout == 0 {
		cfg.Arbiter.Timeout = Duration(15 * time.Second)
	}

	// Names
	if cfg.Names.Validator == "" {
		cfg.Names.Validator = ValidatorGazetteer
	}
	if cfg.Names.MinLength == 0 {
		cfg.Names.MinLength = 2
	}

	// Embeddings
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = embeddings.ProviderDisabled
	}
	if cfg.Embeddings.Provider == embeddings.ProviderTEI && cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = Duration(30 * time.Second)
	}
	if cfg.Embeddings.CacheSize == 0 {
		cfg.Embeddings.CacheSize = 1024
	}

	// LLM
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = llm.ProviderAuto
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	// Telemetry
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "actionitems"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = Duration(15 * time.Second)
	}

	// Server
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}
}

// Validate validates the configuration. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Extraction.Method {
	case "rules", "llm":
	default:
		add("extraction.method must be rules or llm, got %q", c.Extraction.Method)
	}
	if _, err := c.ReferenceTime(); err != nil {
		errs = append(errs, err)
	}
	if c.Extraction.Workers < 1 {
		add("extraction.workers must be at least 1, got %d", c.Extraction.Workers)
	}
	if c.Extraction.MinDescriptionLength < 1 {
		add("extraction.min_description_length must be positive, got %d", c.Extraction.MinDescriptionLength)
	}
	if !unit(c.Extraction.ReviewThreshold) {
		add("extraction.review_threshold must be in [0,1], got %v", c.Extraction.ReviewThreshold)
	}

	if !dedup.ValidStrategy(c.Dedup.Strategy) {
		add("dedup.strategy must be lexical or semantic, got %q", c.Dedup.Strategy)
	}
	if c.Dedup.Threshold != 0 {
		if err := dedup.ValidateThreshold(c.Dedup.Threshold); err != nil {
			add("dedup.threshold: %v", err)
		}
	}

	if !unit(c.Arbiter.ConfidenceThreshold) {
		add("arbiter.confidence_threshold must be in [0,1], got %v", c.Arbiter.ConfidenceThreshold)
	}
	if c.Arbiter.Concurrency < 1 {
		add("arbiter.concurrency must be at least 1, got %d", c.Arbiter.Concurrency)
	}

	switch c.Names.Validator {
	case ValidatorGazetteer, ValidatorNER:
	default:
		add("names.validator must be gazetteer or ner, got %q", c.Names.Validator)
	}

	switch c.Embeddings.Provider {
	case embeddings.ProviderDisabled, embeddings.ProviderFastEmbed, embeddings.ProviderTEI:
	default:
		add("embeddings.provider must be disabled, fastembed or tei, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.CacheSize < 0 {
		add("embeddings.cache_size cannot be negative, got %d", c.Embeddings.CacheSize)
	}

	if !llm.ValidProvider(c.LLM.Provider) {
		add("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.RateLimit < 0 {
		add("llm.rate_limit cannot be negative, got %v", c.LLM.RateLimit)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		add("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case "grpc", "http":
		default:
			add("telemetry.protocol must be grpc or http, got %q", c.Telemetry.Protocol)
		}
		if !unit(c.Telemetry.SampleRate) {
			add("telemetry.sample_rate must be in [0,1], got %v", c.Telemetry.SampleRate)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes < 1 {
		add("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ReferenceTime parses extraction.reference_date. A zero time means "now".
func (c *Config) ReferenceTime() (time.Time, error) {
	return ParseReferenceDate(c.Extraction.ReferenceDate)
}

// ParseReferenceDate accepts YYYY-MM-DD (midnight UTC) or RFC 3339. An
// empty string yields the zero time.
func ParseReferenceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference date %q must be YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
