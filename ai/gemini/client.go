// Package gemini is a Google Gemini client for the generateContent REST API.
package gemini

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/ai/openrouter"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/httpclient"
)

const (
	// DefaultModel is used when none is configured
	DefaultModel = "gemini-1.5-flash"

	// BaseURL is the Generative Language API root
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"

	maxRetries = 3
)

// Config holds Gemini client configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
}

// Client calls models/{model}:generateContent
type Client struct {
	baseURL    string
	httpClient *httpclient.Client
	config     Config
	logger     *zap.SugaredLogger
}

// NewClient creates a Gemini client with defaults applied
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
	base := config.BaseURL
	if base == "" {
		base = BaseURL
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: httpclient.New(httpclient.Options{Timeout: config.Timeout}),
		config:     config,
		logger:     logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// buildRequest maps chat roles onto Gemini's: system turns become the system
// instruction and assistant becomes model.
func buildRequest(msgs []openrouter.Message, temperature float64, maxTokens int) generateRequest {
	req := generateRequest{GenerationConfig: generationConfig{Temperature: temperature, MaxOutputTokens: maxTokens}}
	var system []part
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, part{Text: m.Content})
		case "assistant":
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: system}
	}
	return req
}

// Chat sends the conversation to generateContent
func (c *Client) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	if c.config.APIKey == "" {
		return nil, errors.WithHint(errors.Wrap(errors.ErrNotConfigured, "Gemini API key not configured"),
			"set GEMINI_API_KEY (or GOOGLE_API_KEY) or gemini.api_key")
	}

	model, temperature, maxTokens := openrouter.ResolveParams(req, c.config.Model, c.config.Temperature, c.config.MaxTokens)
	body := buildRequest(req.Messages, temperature, maxTokens)
	if len(body.Contents) == 0 {
		return nil, errors.NewInvalidRequestError("no user message to send")
	}
	endpoint := c.baseURL + "/models/" + url.PathEscape(model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.config.APIKey}

	c.logger.Debugw("Gemini request", "model", model, "messages", len(body.Contents))

	var resp generateResponse
	err := httpclient.Retry(ctx, maxRetries, time.Second, func() error {
		err := c.httpClient.PostJSON(ctx, endpoint, headers, body, &resp)
		if err != nil {
			c.logger.Warnw("Gemini API error", "error", err, "model", model)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "Gemini API error")
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, errors.Newf("Gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
		}
		return nil, errors.New("no candidates in Gemini response")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	usage := openrouter.Usage{
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      resp.UsageMetadata.TotalTokenCount,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}

	return &openrouter.ChatResponse{
		Content: strings.TrimSpace(text.String()),
		Model:   model,
		Usage:   usage,
	}, nil
}

// Name identifies the provider in usage records
func (c *Client) Name() string { return "gemini" }

// Model returns the configured default model
func (c *Client) Model() string { return c.config.Model }

// IsConfigured returns true if the client has an API key
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
