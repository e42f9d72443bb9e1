package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// groqModels maps OpenAI model names onto Groq-hosted equivalents so one
// model setting works against either provider.
var groqModels = map[string]string{
	"gpt-4o-mini":   "llama-3.1-8b-instant",
	"gpt-4o":        "llama-3.3-70b-versatile",
	"gpt-3.5-turbo": "llama-3.1-8b-instant",
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// openAIClient talks to the chat completions API of OpenAI or any
// compatible host such as Groq.
type openAIClient struct {
	transport
	provider   string
	model      string
	apiKey     string `json:"-"`
	baseURL    string
	httpClient *http.Client
}

func newOpenAIClient(cfg Config, provider string, logger *zap.Logger) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s API key is required", ErrInvalidConfig, provider)
	}

	baseURL := cfg.BaseURL
	model := cfg.Model
	switch provider {
	case ProviderGroq:
		if baseURL == "" {
			baseURL = defaultGroqBaseURL
		}
		if model == "" {
			model = defaultOpenAIModel
		}
		if alias, ok := groqModels[model]; ok {
			model = alias
		}
	default:
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		if model == "" {
			model = defaultOpenAIModel
		}
	}

	t := newTransport(cfg, logger)
	return &openAIClient{
		transport:  t,
		provider:   provider,
		model:      model,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: t.timeout},
	}, nil
}

// Complete implements CompletionService.
func (o *openAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	req = requestDefaults(req)

	body := openAIRequest{
		Model:       o.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	if req.JSONMode {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	return o.call(ctx, o.provider, func(ctx context.Context) (string, error) {
		return o.doRequest(ctx, body)
	})
}

func (o *openAIClient) doRequest(ctx context.Context, req openAIRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp, func(b []byte) string {
		var e openAIError
		if json.Unmarshal(b, &e) == nil {
			return e.Error.Message
		}
		return ""
	})
	if err != nil {
		return "", err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}
