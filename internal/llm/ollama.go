package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

// jsonInstruction is appended to the system prompt in JSON mode; the client
// has no native format switch.
const jsonInstruction = "Respond with a single valid JSON value and nothing else."

// ollamaClient runs completions against a local Ollama server through
// langchaingo.
type ollamaClient struct {
	transport
	model llms.Model
	name  string
}

func newOllamaClient(cfg Config, logger *zap.Logger) (*ollamaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "claude-") {
		model = defaultOllamaModel
	}

	client, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", ErrInvalidConfig, err)
	}

	return &ollamaClient{
		transport: newTransport(cfg, logger),
		model:     client,
		name:      model,
	}, nil
}

// Complete implements CompletionService. Connection failures are retried.
func (o *ollamaClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	req = requestDefaults(req)

	messages := ollamaMessages(req)

	return o.call(ctx, ProviderOllama, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		resp, err := o.model.GenerateContent(ctx, messages,
			llms.WithTemperature(req.Temperature),
			llms.WithMaxTokens(req.MaxTokens),
		)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("ollama %s: %w", o.name, err)
			}
			return "", &retryableError{err: fmt.Errorf("ollama %s: %w", o.name, err)}
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Content, nil
	})
}

func ollamaMessages(req CompletionRequest) []llms.MessageContent {
	system := req.System
	if req.JSONMode {
		system = strings.TrimSpace(system + "\n" + jsonInstruction)
	}
	var messages []llms.MessageContent
	if system != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	return append(messages, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))
}
