package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrNotConfigured is returned by the disabled provider.
	ErrNotConfigured = errors.New("embedding provider not configured")
)

// Provider names accepted by NewProvider.
const (
	ProviderDisabled  = "disabled"
	ProviderFastEmbed = "fastembed"
	ProviderTEI       = "tei"
)

// Provider generates document embeddings.
type Provider interface {
	// EmbedDocuments returns one vector per input text, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is "disabled", "fastembed" or "tei". Empty means disabled.
	Provider string
	Model    string
	// BaseURL is the TEI URL (only used for TEI provider)
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// CacheDir is the model cache directory (only used for FastEmbed)
	CacheDir string
	// CacheSize wraps the provider in an LRU cache when positive.
	CacheSize int
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderDisabled, "":
		return Disabled{}, nil
	case ProviderFastEmbed:
		p, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case ProviderTEI:
		var svc *Service
		svc, err = NewService(Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, logger)
		if err == nil {
			p = &teiProvider{Service: svc, dimension: detectDimensionFromModel(cfg.Model)}
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	p = Instrument(p, cfg.Provider, cfg.Model, logger)
	if cfg.CacheSize > 0 {
		return NewCached(p, cfg.CacheSize)
	}
	return p, nil
}

// Disabled is the "not configured" provider. Every call fails with
// ErrNotConfigured.
type Disabled struct{}

// EmbedDocuments always returns ErrNotConfigured.
func (Disabled) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

// Dimension returns 0.
func (Disabled) Dimension() int { return 0 }

// Close is a no-op.
func (Disabled) Close() error { return nil }

// IsDisabled reports whether p is absent or the disabled provider.
func IsDisabled(p Provider) bool {
	if p == nil {
		return true
	}
	_, ok := p.(Disabled)
	return ok
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if model is unknown.
func detectDimensionFromModel(model string) int {
	if dim, ok := knownDimensions[model]; ok {
		return dim
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "large"):
		return 1024
	case strings.Contains(lower, "base"):
		return 768
	default:
		return 384
	}
}

// knownDimensions covers the FastEmbed catalogue under both naming schemes.
var knownDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

// teiProvider wraps Service to implement Provider interface.
type teiProvider struct {
	*Service
	dimension int
}

// Dimension returns the embedding dimension based on the configured model.
func (t *teiProvider) Dimension() int {
	return t.dimension
}

// Close is a no-op for TEI since it uses HTTP.
func (t *teiProvider) Close() error {
	return nil
}
