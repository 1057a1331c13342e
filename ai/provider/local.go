package provider

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/ai/openrouter"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/internal/httpclient"
)

// DefaultLocalModel is used when local.model is empty
const DefaultLocalModel = "llama3.2:3b"

// LocalConfig configures an Ollama, LocalAI or other OpenAI-compatible server
type LocalConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	ContextSize int // 0 = model default
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
}

// LocalProvider talks to a local inference server through its
// OpenAI-compatible /v1/chat/completions endpoint.
type LocalProvider struct {
	baseURL    string
	httpClient *httpclient.Client
	config     LocalConfig
	logger     *zap.SugaredLogger
}

// NewLocalProvider creates a provider for local inference
func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultLocalModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LocalProvider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpclient.New(httpclient.Options{Timeout: cfg.Timeout, AllowPrivate: true}),
		config:     cfg,
		logger:     logger,
	}
}

// ChatCompletionRequest matches OpenAI API format (Ollama is compatible)
type ChatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []openrouter.Message `json:"messages"`
	Stream      bool                 `json:"stream"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Options     *CompletionOpts      `json:"options,omitempty"` // Ollama-specific options
}

// CompletionOpts are Ollama's native sampling options
type CompletionOpts struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"num_predict,omitempty"` // Ollama uses num_predict
	NumCtx      int     `json:"num_ctx,omitempty"`     // Context window size (Ollama default: 4096)
}

// ChatCompletionResponse matches OpenAI API format
type ChatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openrouter.Message `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
	Usage *openrouter.Usage `json:"usage,omitempty"`
}

// Chat sends the conversation to the local server
func (lp *LocalProvider) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	if lp.baseURL == "" {
		return nil, errors.WithHint(errors.Wrap(errors.ErrNotConfigured, "local inference base URL not configured"),
			"set OLLAMA_BASE_URL or local.base_url, e.g. http://localhost:11434")
	}

	model, temperature, maxTokens := openrouter.ResolveParams(req, lp.config.Model, lp.config.Temperature, lp.config.MaxTokens)
	body := ChatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Stream:      false,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Options: &CompletionOpts{
			Temperature: temperature,
			MaxTokens:   maxTokens,
			NumCtx:      lp.config.ContextSize,
		},
	}

	lp.logger.Debugw("Local inference request", "model", model, "base_url", lp.baseURL)

	var completion ChatCompletionResponse
	if err := lp.httpClient.PostJSON(ctx, lp.baseURL+"/v1/chat/completions", nil, body, &completion); err != nil {
		err = errors.Wrap(err, "local inference request failed")
		if httpclient.IsRetryable(err) {
			err = errors.WithHintf(err, "is the server running at %s? try: ollama serve && ollama pull %s", lp.baseURL, model)
		}
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no completion choices returned")
	}

	resp := &openrouter.ChatResponse{
		Content: strings.TrimSpace(completion.Choices[0].Message.Content),
		Model:   model,
	}
	if completion.Usage != nil {
		resp.Usage = *completion.Usage
		if resp.Usage.TotalTokens == 0 {
			resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
	}
	return resp, nil
}

// Name identifies the provider in usage records
func (lp *LocalProvider) Name() string { return "local" }

// Model returns the configured local model name
func (lp *LocalProvider) Model() string { return lp.config.Model }
