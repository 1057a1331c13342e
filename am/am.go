// Package am holds diagen's configuration: the Config struct, its defaults,
// loading through viper, validation, introspection and persistence.
package am

import (
	"fmt"
	"time"
)

// Config represents the complete diagen configuration
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm" toml:"llm" json:"llm" yaml:"llm"`
	Gemini     GeminiConfig     `mapstructure:"gemini" toml:"gemini" json:"gemini" yaml:"gemini"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic" toml:"anthropic" json:"anthropic" yaml:"anthropic"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter" toml:"openrouter" json:"openrouter" yaml:"openrouter"`
	Local      LocalConfig      `mapstructure:"local" toml:"local" json:"local" yaml:"local"`
	Generation GenerationConfig `mapstructure:"generation" toml:"generation" json:"generation" yaml:"generation"`
	Validator  ValidatorConfig  `mapstructure:"validator" toml:"validator" json:"validator" yaml:"validator"`
	Render     RenderConfig     `mapstructure:"render" toml:"render" json:"render" yaml:"render"`
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
}

// LLMConfig selects providers and shared sampling parameters
type LLMConfig struct {
	Provider          string  `mapstructure:"provider" toml:"provider" json:"provider" yaml:"provider"`                                        // gemini, anthropic, openrouter, ollama, auto
	Model             string  `mapstructure:"model" toml:"model" json:"model" yaml:"model"`                                                    // overrides the provider's own model when set
	CodegenProvider   string  `mapstructure:"codegen_provider" toml:"codegen_provider" json:"codegen_provider" yaml:"codegen_provider"`        // empty = same as provider
	CodegenModel      string  `mapstructure:"codegen_model" toml:"codegen_model" json:"codegen_model" yaml:"codegen_model"`                    // empty = same as model
	Temperature       float64 `mapstructure:"temperature" toml:"temperature" json:"temperature" yaml:"temperature"`                            // used when a prompt does not set one
	MaxTokens         int     `mapstructure:"max_tokens" toml:"max_tokens" json:"max_tokens" yaml:"max_tokens"`                                // used when a prompt does not set one
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`            // per HTTP request
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second" json:"requests_per_second" yaml:"requests_per_second"` // 0 = unlimited
}

// GeminiConfig configures the Google Generative Language API
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key" toml:"api_key" json:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" toml:"model" json:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" toml:"base_url" json:"base_url" yaml:"base_url"`
}

// AnthropicConfig configures the Anthropic Messages API
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key" toml:"api_key" json:"api_key" yaml:"api_key"`
	Model  string `mapstructure:"model" toml:"model" json:"model" yaml:"model"`
}

// OpenRouterConfig configures OpenRouter.ai API access
type OpenRouterConfig struct {
	APIKey string `mapstructure:"api_key" toml:"api_key" json:"api_key" yaml:"api_key"`
	Model  string `mapstructure:"model" toml:"model" json:"model" yaml:"model"`
}

// LocalConfig configures local inference (Ollama or any OpenAI-compatible server)
type LocalConfig struct {
	BaseURL        string `mapstructure:"base_url" toml:"base_url" json:"base_url" yaml:"base_url"` // e.g. http://localhost:11434
	Model          string `mapstructure:"model" toml:"model" json:"model" yaml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
	ContextSize    int    `mapstructure:"context_size" toml:"context_size" json:"context_size" yaml:"context_size"` // 0 = model default
}

// GenerationConfig configures the generate/validate/correct loop
type GenerationConfig struct {
	Strategy     string `mapstructure:"strategy" toml:"strategy" json:"strategy" yaml:"strategy"` // compiler or llm
	MaxAttempts  int    `mapstructure:"max_attempts" toml:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
	PromptsDir   string `mapstructure:"prompts_dir" toml:"prompts_dir" json:"prompts_dir" yaml:"prompts_dir"` // overrides embedded prompts file by file
	DefaultTitle string `mapstructure:"default_title" toml:"default_title" json:"default_title" yaml:"default_title"`
}

// ValidatorConfig selects the syntax validator
type ValidatorConfig struct {
	Strategy string `mapstructure:"strategy" toml:"strategy" json:"strategy" yaml:"strategy"` // auto, parser, heuristic, dot
}

// RenderConfig configures the graphviz render step
type RenderConfig struct {
	OutputDir      string `mapstructure:"output_dir" toml:"output_dir" json:"output_dir" yaml:"output_dir"`
	Format         string `mapstructure:"format" toml:"format" json:"format" yaml:"format"` // svg, png, pdf
	Binary         string `mapstructure:"binary" toml:"binary" json:"binary" yaml:"binary"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
}

// DatabaseConfig configures the SQLite history and usage store
type DatabaseConfig struct {
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
}

// Generation strategies
const (
	StrategyCompiler = "compiler"
	StrategyLLM      = "llm"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// LLMTimeout returns the per-request timeout for remote providers.
func (c *Config) LLMTimeout() time.Duration {
	return seconds(c.LLM.TimeoutSeconds, DefaultLLMTimeoutSeconds)
}

// LocalTimeout returns the per-request timeout for local inference.
func (c *Config) LocalTimeout() time.Duration {
	return seconds(c.Local.TimeoutSeconds, DefaultLocalTimeoutSeconds)
}

// RenderTimeout returns the graphviz wall-clock budget.
func (c *Config) RenderTimeout() time.Duration {
	return seconds(c.Render.TimeoutSeconds, DefaultRenderTimeoutSeconds)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// String returns a short, secret-free summary of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{LLM: %s, Strategy: %s, MaxAttempts: %d, Validator: %s, Render: %s -> %s}",
		c.LLM.Provider, c.Generation.Strategy, c.Generation.MaxAttempts,
		c.Validator.Strategy, c.Render.Format, c.Render.OutputDir)
}
