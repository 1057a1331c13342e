// Package openrouter is the OpenRouter.ai chat completions client. Its
// ChatRequest and ChatResponse are the request shape shared by every remote
// provider client.
package openrouter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/httpclient"
)

const (
	// DefaultModel is the fallback model when none is specified
	DefaultModel = "openai/gpt-4o-mini"

	// BaseURL is the OpenRouter API root
	BaseURL = "https://openrouter.ai/api/v1"

	maxRetries = 3
)

// Message is one chat turn. Role is system, user or assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a high-level request to a chat model
type ChatRequest struct {
	Messages    []Message
	Temperature *float64 // Override default temperature
	MaxTokens   *int     // Override default max tokens
	Model       *string  // Override default model
	Operation   string   // Pipeline stage, recorded by usage tracking
}

// ChatResponse represents the model's reply
type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config holds client configuration
type Config struct {
	APIKey      string
	Model       string
	Temperature float64 // 0 = default 0.1
	MaxTokens   int     // 0 = default 4096
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
}

// Client represents an OpenRouter.ai API client
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
	config     Config
	logger     *zap.SugaredLogger
}

// NewClient creates a new OpenRouter.ai client with defaults applied
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

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// ResolveParams applies per-request overrides to configured defaults.
func ResolveParams(req ChatRequest, model string, temperature float64, maxTokens int) (string, float64, int) {
	if req.Model != nil && *req.Model != "" {
		model = *req.Model
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}
	return model, temperature, maxTokens
}

// Chat sends a chat completion request with retry on transient failures
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.config.APIKey == "" {
		return nil, errors.WithHint(errors.Wrap(errors.ErrNotConfigured, "OpenRouter API key not configured"),
			"set OPENROUTER_API_KEY or openrouter.api_key")
	}

	model, temperature, maxTokens := ResolveParams(req, c.config.Model, c.config.Temperature, c.config.MaxTokens)
	body := completionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
		"X-Title":       "diagen",
	}

	c.logger.Debugw("OpenRouter request", "model", model, "messages", len(req.Messages))

	var resp completionResponse
	err := httpclient.Retry(ctx, maxRetries, time.Second, func() error {
		err := c.httpClient.PostJSON(ctx, c.baseURL+"/chat/completions", headers, body, &resp)
		if err != nil {
			c.logger.Warnw("OpenRouter API error", "error", err, "model", model)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "OpenRouter API error")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices from OpenRouter")
	}
	if resp.Model == "" {
		resp.Model = model
	}
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}

	return &ChatResponse{
		Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:   resp.Model,
		Usage:   resp.Usage,
	}, nil
}

// Name identifies the provider in usage records
func (c *Client) Name() string { return "openrouter" }

// Model returns the configured default model
func (c *Client) Model() string { return c.config.Model }

// IsConfigured returns true if the client has a valid API key
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// SetHTTPClient overrides the HTTP client and base URL. Tests only.
func (c *Client) SetHTTPClient(client *http.Client, baseURL string) {
	c.httpClient = httpclient.Wrap(client)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}
