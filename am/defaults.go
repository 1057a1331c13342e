package am

import (
	"github.com/spf13/viper"
)

// Default values shared by SetDefaults and the timeout accessors
const (
	DefaultLLMTimeoutSeconds    = 120
	DefaultLocalTimeoutSeconds  = 600
	DefaultRenderTimeoutSeconds = 30
	DefaultMaxAttempts          = 3
	DefaultTitle                = "System Architecture Diagram"
	DefaultDatabasePath         = "diagen.db"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// LLM selection
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.codegen_provider", "")
	v.SetDefault("llm.codegen_model", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_seconds", DefaultLLMTimeoutSeconds)
	v.SetDefault("llm.requests_per_second", 0.0)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")

	// Local inference (Ollama)
	v.SetDefault("local.base_url", "http://localhost:11434")
	v.SetDefault("local.model", "llama3.2:3b")
	v.SetDefault("local.timeout_seconds", DefaultLocalTimeoutSeconds)
	v.SetDefault("local.context_size", 16384)

	// Generate/validate/correct loop
	v.SetDefault("generation.strategy", StrategyCompiler)
	v.SetDefault("generation.max_attempts", DefaultMaxAttempts)
	v.SetDefault("generation.prompts_dir", "")
	v.SetDefault("generation.default_title", DefaultTitle)

	v.SetDefault("validator.strategy", "auto")

	v.SetDefault("render.output_dir", "output")
	v.SetDefault("render.format", "svg")
	v.SetDefault("render.binary", "dot")
	v.SetDefault("render.timeout_seconds", DefaultRenderTimeoutSeconds)

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.enabled", true)
}

// bareEnvBindings maps config keys to the unprefixed environment names that
// earlier releases documented. DIAGEN_* names are bound by AutomaticEnv.
var bareEnvBindings = map[string][]string{
	"gemini.api_key":          {"DIAGEN_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"gemini.model":            {"DIAGEN_GEMINI_MODEL", "GEMINI_MODEL"},
	"anthropic.api_key":       {"DIAGEN_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
	"openrouter.api_key":      {"DIAGEN_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"},
	"local.base_url":          {"DIAGEN_LOCAL_BASE_URL", "OLLAMA_BASE_URL"},
	"llm.provider":            {"DIAGEN_LLM_PROVIDER", "LLM_PROVIDER"},
	"llm.model":               {"DIAGEN_LLM_MODEL", "LLM_MODEL"},
	"llm.codegen_provider":    {"DIAGEN_LLM_CODEGEN_PROVIDER", "CODE_GEN_LLM_PROVIDER"},
	"llm.codegen_model":       {"DIAGEN_LLM_CODEGEN_MODEL", "CODE_GEN_LLM_MODEL"},
	"generation.max_attempts": {"DIAGEN_GENERATION_MAX_ATTEMPTS", "MAX_RETRY_ATTEMPTS"},
	"render.output_dir":       {"DIAGEN_RENDER_OUTPUT_DIR", "OUTPUT_DIR"},
	"render.format":           {"DIAGEN_RENDER_FORMAT", "RENDER_FORMAT", "GRAPHVIZ_FORMAT"},
	"database.path":           {"DIAGEN_DATABASE_PATH"},
}

// BindSensitiveEnvVars explicitly binds keys whose environment names do not
// follow the DIAGEN_ prefix. The first set variable wins.
func BindSensitiveEnvVars(v *viper.Viper) {
	for key, names := range bareEnvBindings {
		args := append([]string{key}, names...)
		_ = v.BindEnv(args...)
	}
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}
