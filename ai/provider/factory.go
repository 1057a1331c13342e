package provider

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/ai/anthropic"
	"github.com/kenjpais/diagram-generator/ai/gemini"
	"github.com/kenjpais/diagram-generator/ai/openrouter"
	"github.com/kenjpais/diagram-generator/ai/tracker"
	"github.com/kenjpais/diagram-generator/am"
	"github.com/kenjpais/diagram-generator/errors"
)

// Provider represents an LLM provider type
type Provider string

const (
	// ProviderGemini uses the Google Generative Language API
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic uses direct Anthropic API
	ProviderAnthropic Provider = "anthropic"
	// ProviderOpenRouter uses OpenRouter.ai API
	ProviderOpenRouter Provider = "openrouter"
	// ProviderLocal uses local inference (Ollama, LocalAI)
	ProviderLocal Provider = "local"
	// ProviderAuto automatically selects based on configuration
	ProviderAuto Provider = "auto"
)

// ParseProvider converts a string to a Provider type
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "openrouter", "or":
		return ProviderOpenRouter, nil
	case "local", "ollama", "localai":
		return ProviderLocal, nil
	case "auto", "":
		return ProviderAuto, nil
	default:
		return "", errors.NewInvalidRequestError("unknown provider: %s (valid: gemini, anthropic, openrouter, ollama, auto)", s)
	}
}

// Options are the runtime dependencies of a client
type Options struct {
	Tracker *tracker.UsageTracker // nil disables usage tracking
	Logger  *zap.SugaredLogger
	Codegen bool // use llm.codegen_provider / llm.codegen_model
}

// New builds the Client for kind. ProviderAuto picks the first provider with
// credentials: Gemini, Anthropic, OpenRouter, then local inference.
func New(cfg *am.Config, kind Provider, opts Options) (Client, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if kind == ProviderAuto {
		kind = AutoSelect(cfg)
	}

	model := cfg.LLM.Model
	if opts.Codegen && cfg.LLM.CodegenModel != "" {
		model = cfg.LLM.CodegenModel
	}

	ch, name, resolvedModel, err := newChatter(cfg, kind, model, opts.Logger)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debugw("LLM client ready", "provider", name, "model", resolvedModel, "codegen", opts.Codegen)

	ch = Tracked(ch, opts.Tracker, name, resolvedModel, opts.Logger)
	return RateLimited(FromChatter(ch), cfg.LLM.RequestsPerSecond), nil
}

// NewFromConfig resolves llm.provider (or llm.codegen_provider) and builds the client.
func NewFromConfig(cfg *am.Config, opts Options) (Client, error) {
	name := cfg.LLM.Provider
	if opts.Codegen && cfg.LLM.CodegenProvider != "" {
		name = cfg.LLM.CodegenProvider
	}
	kind, err := ParseProvider(name)
	if err != nil {
		return nil, err
	}
	return New(cfg, kind, opts)
}

// AutoSelect returns the first configured provider.
func AutoSelect(cfg *am.Config) Provider {
	switch {
	case cfg.Gemini.APIKey != "":
		return ProviderGemini
	case cfg.Anthropic.APIKey != "":
		return ProviderAnthropic
	case cfg.OpenRouter.APIKey != "":
		return ProviderOpenRouter
	default:
		return ProviderLocal
	}
}

// GetAvailableProviders returns a list of configured/available providers
func GetAvailableProviders(cfg *am.Config) []Provider {
	var providers []Provider
	if cfg.Gemini.APIKey != "" {
		providers = append(providers, ProviderGemini)
	}
	if cfg.Anthropic.APIKey != "" {
		providers = append(providers, ProviderAnthropic)
	}
	if cfg.OpenRouter.APIKey != "" {
		providers = append(providers, ProviderOpenRouter)
	}
	if cfg.Local.BaseURL != "" {
		providers = append(providers, ProviderLocal)
	}
	return providers
}

func newChatter(cfg *am.Config, kind Provider, model string, log *zap.SugaredLogger) (Chatter, string, string, error) {
	switch kind {
	case ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, "", "", missingKey("Gemini", "GEMINI_API_KEY", "gemini.api_key")
		}
		c := gemini.NewClient(gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       firstNonEmpty(model, cfg.Gemini.Model),
			BaseURL:     cfg.Gemini.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
			Logger:      log.Named("gemini"),
		})
		return c, c.Name(), c.Model(), nil

	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, "", "", missingKey("Anthropic", "ANTHROPIC_API_KEY", "anthropic.api_key")
		}
		c := anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Anthropic.APIKey,
			Model:       firstNonEmpty(model, cfg.Anthropic.Model),
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
			Logger:      log.Named("anthropic"),
		})
		return c, c.Name(), c.Model(), nil

	case ProviderOpenRouter:
		if cfg.OpenRouter.APIKey == "" {
			return nil, "", "", missingKey("OpenRouter", "OPENROUTER_API_KEY", "openrouter.api_key")
		}
		c := openrouter.NewClient(openrouter.Config{
			APIKey:      cfg.OpenRouter.APIKey,
			Model:       firstNonEmpty(model, cfg.OpenRouter.Model),
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLMTimeout(),
			Logger:      log.Named("openrouter"),
		})
		return c, c.Name(), c.Model(), nil

	case ProviderLocal:
		c := NewLocalProvider(LocalConfig{
			BaseURL:     cfg.Local.BaseURL,
			Model:       firstNonEmpty(model, cfg.Local.Model),
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			ContextSize: cfg.Local.ContextSize,
			Timeout:     cfg.LocalTimeout(),
			Logger:      log.Named("local"),
		})
		return c, c.Name(), c.Model(), nil
	}
	return nil, "", "", errors.NewInvalidRequestError("unknown provider: %s", kind)
}

func missingKey(name, env, key string) error {
	return errors.WithHintf(errors.Wrapf(errors.ErrNotConfigured, "%s API key not configured", name),
		"set %s or %s in ~/.diagen/config.toml", env, key)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Verify interfaces are implemented
var (
	_ Chatter = (*openrouter.Client)(nil)
	_ Chatter = (*anthropic.Client)(nil)
	_ Chatter = (*gemini.Client)(nil)
	_ Chatter = (*LocalProvider)(nil)
)
