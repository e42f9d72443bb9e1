package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// call runs attempt under the rate limiter, retrying retryable failures with
// exponential backoff.
func (t transport) call(ctx context.Context, provider string, attempt func(ctx context.Context) (string, error)) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	var lastErr error
	for n := 0; n <= t.maxRetries; n++ {
		if n > 0 {
			backoff := t.backoff * time.Duration(1<<(n-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		out, err := attempt(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
		t.logger.Debug("llm request failed, retrying",
			zap.String("provider", provider),
			zap.Int("attempt", n+1),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// readResponse classifies an HTTP response: 429 and 5xx are retryable, other
// non-200 codes are returned through apiErr.
func readResponse(resp *http.Response, apiErr func(body []byte) string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		if msg := apiErr(body); msg != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// secretPatterns are scrubbed from prompts, most specific first.
var secretPatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(OPENAI_API_KEY|ANTHROPIC_API_KEY|GROQ_API_KEY|GITHUB_TOKEN|AWS_SECRET_ACCESS_KEY)\s*=\s*([^\s]+)`), "${1}=[REDACTED]"},
	{regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`), "[REDACTED_API_KEY]"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?\s*([^"'\s]{8,})["']?`), "${1}=[REDACTED]"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{20,}`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*["']?\s*([^"'\s]{4,})["']?`), "${1}=[REDACTED]"},
	{regexp.MustCompile(`(?i)-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----[\s\S]*?-----END (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`), "[REDACTED_PRIVATE_KEY]"},
}

// scrubSecrets removes credential-looking strings from prompt text.
func scrubSecrets(content string) string {
	for _, p := range secretPatterns {
		content = p.regex.ReplaceAllString(content, p.replacement)
	}
	return content
}
