package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config points the TEI client at a text-embeddings-inference server.
type Config struct {
	BaseURL string
	// Model is informational; TEI serves a single model.
	Model  string
	APIKey string
	// Timeout bounds one request. Zero selects 10s.
	Timeout time.Duration
}

// Validate requires a base URL.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return nil
}

// Service is an HTTP client for TEI's POST /embed.
type Service struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewService validates cfg and builds the client.
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/embed",
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// EmbedDocuments returns one vector per text, in order. Inputs longer than
// the server's limit are truncated server side.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	req, err := s.newRequest(ctx, texts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	vectors, err := decodeVectors(resp, len(texts))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("embedded task descriptions",
		zap.String("model", s.model),
		zap.Int("count", len(texts)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return vectors, nil
}

func (s *Service) newRequest(ctx context.Context, texts []string) (*http.Request, error) {
	body, err := json.Marshal(struct {
		Inputs   []string `json:"inputs"`
		Truncate bool     `json:"truncate"`
	}{texts, true})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	return req, nil
}

func decodeVectors(resp *http.Response, want int) ([][]float32, error) {
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, bytes.TrimSpace(detail))
	}
	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != want {
		return nil, fmt.Errorf("%w: %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), want)
	}
	return vectors, nil
}
