package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/ai/openrouter"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/httpclient"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-20250514"

	// BaseURL is the Anthropic API endpoint
	BaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the required Anthropic API version header
	APIVersion = "2023-06-01"

	maxRetries = 3
)

// Client represents an Anthropic API client
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
	config     Config
	logger     *zap.SugaredLogger
}

// Config holds Anthropic client configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
}

// NewClient creates a new Anthropic API client
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:    BaseURL,
		httpClient: httpclient.New(httpclient.Options{Timeout: config.Timeout}),
		config:     config,
		logger:     logger,
	}
}

// MessagesRequest represents a request to the Anthropic Messages API
type MessagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// MessagesResponse represents the response from the Messages API
type MessagesResponse struct {
	ID         string         `json:"id"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock represents a content block in the response
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// buildRequest moves system turns into the top-level system field, which is
// where the Messages API expects them.
func buildRequest(msgs []openrouter.Message, model string, temperature float64, maxTokens int) MessagesRequest {
	req := MessagesRequest{Model: model, MaxTokens: maxTokens, Temperature: temperature}
	var system []string
	for _, m := range msgs {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, Message{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// Chat sends the conversation to the Messages API, retrying transient failures
func (c *Client) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	if c.config.APIKey == "" {
		return nil, errors.WithHint(errors.Wrap(errors.ErrNotConfigured, "Anthropic API key not configured"),
			"set ANTHROPIC_API_KEY or anthropic.api_key")
	}

	model, temperature, maxTokens := openrouter.ResolveParams(req, c.config.Model, c.config.Temperature, c.config.MaxTokens)
	body := buildRequest(req.Messages, model, temperature, maxTokens)
	if len(body.Messages) == 0 {
		return nil, errors.NewInvalidRequestError("no user message to send")
	}
	headers := map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": APIVersion,
	}

	c.logger.Debugw("Anthropic request", "model", model, "messages", len(body.Messages))

	var resp MessagesResponse
	err := httpclient.Retry(ctx, maxRetries, time.Second, func() error {
		err := c.httpClient.PostJSON(ctx, c.baseURL+"/messages", headers, body, &resp)
		if err != nil {
			c.logger.Warnw("Anthropic API error", "error", err, "model", model)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "Anthropic API error")
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if resp.Model == "" {
		resp.Model = model
	}

	return &openrouter.ChatResponse{
		Content: strings.TrimSpace(content.String()),
		Model:   resp.Model,
		Usage: openrouter.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// Name identifies the provider in usage records
func (c *Client) Name() string { return "anthropic" }

// Model returns the configured default model
func (c *Client) Model() string { return c.config.Model }

// IsConfigured returns true if the client has a valid API key
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// SetHTTPClient allows overriding the HTTP client for testing
func (c *Client) SetHTTPClient(client *http.Client, baseURL string) {
	c.httpClient = httpclient.Wrap(client)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}
