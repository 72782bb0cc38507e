// internal/completion/client.go
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"opportunity-research/internal/common/config"
	"opportunity-research/internal/common/errors"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/metrics"
)

// Config holds the completion provider settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int // default per-call budget, callers may override
	MaxRetries     int // total attempts, including the first
	InitialBackoff time.Duration
}

// ConfigFrom converts the application config section.
func ConfigFrom(cfg config.CompletionConfig) *Config {
	return &Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Model:          cfg.Model,
		MaxTokens:      cfg.MaxTokens,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: time.Duration(cfg.InitialBackoffMS) * time.Millisecond,
	}
}

// Client invokes the external text-completion provider and extracts a
// single JSON object from its free-form text output. It keeps no state
// between calls.
type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg *Config, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		// No client-level timeout; the caller's context bounds each call.
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "completion-client",
		}),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type completionResponse struct {
	Content []contentBlock `json:"content"`
}

// Complete sends the system/user prompt pair and returns the first JSON
// object found in the response text, decoded into a generic map.
//
// Transient failures (HTTP 429, 529, any 5xx, connection reset) are
// retried with full exponential backoff: up to MaxRetries attempts total,
// with a delay of InitialBackoff * 2^(k-2) before attempt k. Exhausting
// the budget returns the last error. All other failures, including a
// response with no parseable JSON object, return immediately.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (map[string]interface{}, error) {
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 1 {
			metrics.CompletionRetries.Inc()
			backoff := c.config.InitialBackoff << (attempt - 2)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.CompletionCalls.WithLabelValues("error").Inc()
				return nil, errors.NewCompletionFailedError(ctx.Err().Error())
			}
		}

		result, err := c.doAttempt(ctx, system, user, maxTokens)
		if err == nil {
			metrics.CompletionCalls.WithLabelValues("success").Inc()
			return result, nil
		}
		lastErr = err

		if !errors.IsRetryable(err) {
			metrics.CompletionCalls.WithLabelValues("error").Inc()
			return nil, err
		}

		c.logger.Warn("completion attempt failed, will retry", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	}

	metrics.CompletionCalls.WithLabelValues("error").Inc()
	return nil, lastErr
}

// StructuredComplete is the stricter variant of Complete: the extracted
// JSON object is additionally validated against the caller-supplied JSON
// schema. A validation failure is returned as SCHEMA_VALIDATION_FAILED and
// is never retried.
func (c *Client) StructuredComplete(ctx context.Context, system, user string, schema map[string]interface{}, maxTokens int) (map[string]interface{}, error) {
	result, err := c.Complete(ctx, system, user, maxTokens)
	if err != nil {
		return nil, err
	}

	validation, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(result),
	)
	if err != nil {
		return nil, errors.NewSchemaValidationFailedError(err.Error())
	}
	if !validation.Valid() {
		descs := make([]string, len(validation.Errors()))
		for i, desc := range validation.Errors() {
			descs[i] = desc.String()
		}
		return nil, errors.NewSchemaValidationFailedError(strings.Join(descs, "; "))
	}

	return result, nil
}

func (c *Client) doAttempt(ctx context.Context, system, user string, maxTokens int) (map[string]interface{}, error) {
	body, err := json.Marshal(completionRequest{
		Model:     c.config.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, errors.NewCompletionFailedError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewCompletionFailedError(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if isConnectionReset(err) {
			return nil, errors.NewCompletionUnavailableError(err.Error())
		}
		return nil, errors.NewCompletionFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		details := fmt.Sprintf("status %d: %s", resp.StatusCode, snippet)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errors.NewCompletionRateLimitedError(details)
		case resp.StatusCode == 529:
			return nil, errors.NewCompletionOverloadedError(details)
		case resp.StatusCode >= 500:
			return nil, errors.NewCompletionUnavailableError(details)
		default:
			return nil, errors.NewCompletionFailedError(details)
		}
	}

	var apiResponse completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewCompletionFailedError(fmt.Sprintf("decode response: %v", err))
	}

	text := ""
	for _, block := range apiResponse.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewCompletionMalformedOutputError("no text content in response")
	}

	return extractJSONObject(text)
}

// extractJSONObject locates the candidate JSON object in free-form text as
// the substring from the first '{' through the last '}', and parses only
// that substring. Absence of a candidate or a parse failure is a permanent
// failure.
func extractJSONObject(text string) (map[string]interface{}, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		snippet := text
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, errors.NewCompletionMalformedOutputError(snippet)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, errors.NewCompletionMalformedOutputError(err.Error())
	}
	return result, nil
}

func isConnectionReset(err error) bool {
	return strings.Contains(err.Error(), "connection reset")
}
