// Package llm provides completion services used for arbitration and the
// few-shot extraction strategy.
//
// Supported providers are OpenAI, Groq (OpenAI-compatible), Anthropic and a
// local Ollama server through langchaingo. Clients are rate limited and
// retry transient failures with exponential backoff. Prompt text is scrubbed
// of credentials before it leaves the process.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider names.
const (
	ProviderAuto      = "auto"
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderDisabled  = "disabled"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultGroqBaseURL      = "https://api.groq.com/openai"
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultOllamaModel      = "llama3.1"
	defaultMaxTokens        = 300
	defaultTemperature      = 0.3
	defaultTimeout          = 30 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
	maxResponseBody         = 1 << 20
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

var (
	// ErrInvalidConfig indicates a provider cannot be built from the config.
	ErrInvalidConfig = errors.New("invalid llm configuration")

	// ErrNotConfigured is returned when no provider is selected or none can
	// be auto-detected.
	ErrNotConfigured = errors.New("no llm provider configured")

	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("empty response from API")
)

// CompletionRequest is one prompt for a completion service.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSONMode asks providers that support it to return a JSON object.
	JSONMode bool
}

// CompletionService generates text from a prompt.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Model      string
	APIKey     string `json:"-"`
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	MaxRetries int

	// Keys consulted by the auto provider, in order Groq, OpenAI, Anthropic.
	GroqAPIKey      string `json:"-"`
	OpenAIAPIKey    string `json:"-"`
	AnthropicAPIKey string `json:"-"`
}

// New builds the configured completion service.
func New(cfg Config, logger *zap.Logger) (CompletionService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case ProviderDisabled, "":
		return nil, ErrNotConfigured
	case ProviderAuto:
		return newAuto(cfg, logger)
	case ProviderOpenAI:
		return newOpenAIClient(withKey(cfg, cfg.OpenAIAPIKey), ProviderOpenAI, logger)
	case ProviderGroq:
		return newOpenAIClient(withKey(cfg, cfg.GroqAPIKey), ProviderGroq, logger)
	case ProviderAnthropic:
		return newAnthropicClient(withKey(cfg, cfg.AnthropicAPIKey), logger)
	case ProviderOllama:
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// ValidProvider reports whether name is a known provider.
func ValidProvider(name string) bool {
	switch name {
	case ProviderAuto, ProviderOpenAI, ProviderGroq, ProviderAnthropic, ProviderOllama, ProviderDisabled, "":
		return true
	}
	return false
}

func withKey(cfg Config, fallback string) Config {
	if cfg.APIKey == "" {
		cfg.APIKey = fallback
	}
	return cfg
}

// newAuto picks the first provider with a key. Groq is preferred for its
// latency, OpenAI next, then Anthropic.
func newAuto(cfg Config, logger *zap.Logger) (CompletionService, error) {
	switch {
	case cfg.GroqAPIKey != "":
		logger.Debug("llm provider selected", zap.String("provider", ProviderGroq))
		return newOpenAIClient(withKey(Config{
			Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout,
			RateLimit: cfg.RateLimit, Burst: cfg.Burst, MaxRetries: cfg.MaxRetries,
		}, cfg.GroqAPIKey), ProviderGroq, logger)
	case cfg.OpenAIAPIKey != "":
		logger.Debug("llm provider selected", zap.String("provider", ProviderOpenAI))
		return newOpenAIClient(withKey(Config{
			Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout,
			RateLimit: cfg.RateLimit, Burst: cfg.Burst, MaxRetries: cfg.MaxRetries,
		}, cfg.OpenAIAPIKey), ProviderOpenAI, logger)
	case cfg.AnthropicAPIKey != "":
		logger.Debug("llm provider selected", zap.String("provider", ProviderAnthropic))
		return newAnthropicClient(withKey(Config{
			Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout,
			RateLimit: cfg.RateLimit, Burst: cfg.Burst, MaxRetries: cfg.MaxRetries,
		}, cfg.AnthropicAPIKey), logger)
	default:
		return nil, ErrNotConfigured
	}
}

// transport holds what every HTTP-backed client shares.
type transport struct {
	timeout    time.Duration
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func newTransport(cfg Config, logger *zap.Logger) transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultMaxRetries
	}
	return transport{
		timeout:    timeout,
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		maxRetries: retries,
		backoff:    defaultBaseBackoff,
		logger:     logger,
	}
}

func requestDefaults(req CompletionRequest) CompletionRequest {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if req.Temperature < 0 {
		req.Temperature = defaultTemperature
	}
	req.System = scrubSecrets(req.System)
	req.Prompt = scrubSecrets(req.Prompt)
	return req
}
