// Package claude implements a raw-HTTP client for the Anthropic messages API
// with multi-turn tool use.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"helpdesk/internal/logging"
)

const anthropicVersion = "2023-06-01"

// Config holds client settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   "https://api.anthropic.com/v1",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 4096,
		Timeout:   2 * time.Minute,
	}
}

// Client talks to the Anthropic messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a client with the given config, filling unset fields
// from defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Healthy reports whether the client is usable (key configured). Used by the
// health endpoint; does not make a network call.
func (c *Client) Healthy() bool {
	return c.apiKey != ""
}

// Messages sends the full conversation history with tool definitions and
// returns the parsed response. Callers own the loop; this method makes
// exactly one API call.
func (c *Client) Messages(ctx context.Context, system string, history []Message, tools []Tool) (*Response, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Claude] Messages: model=%s history=%d tools=%d system_len=%d",
		c.model, len(history), len(tools), len(system))

	if c.apiKey == "" {
		logging.APIError("[Claude] Messages: API key not configured")
		return nil, &ModelError{Message: "API key not configured"}
	}

	reqBody := request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  history,
		Tools:     tools,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.APIError("[Claude] Messages: request failed after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.APIError("[Claude] Messages: API returned status %d: %s", resp.StatusCode, truncate(string(body), 500))
		return nil, &ModelError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var parsed Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		logging.APIError("[Claude] Messages: API error: %s", parsed.Error.Message)
		return nil, &ModelError{Message: parsed.Error.Message}
	}

	if len(parsed.Content) == 0 {
		return nil, &ModelError{Message: "empty response content"}
	}

	logging.API("[Claude] Messages: completed in %v blocks=%d stop_reason=%s",
		time.Since(startTime), len(parsed.Content), parsed.StopReason)
	return &parsed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
