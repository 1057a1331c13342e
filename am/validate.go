package am

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/render"
	"github.com/kenjpais/diagram-generator/validate"
)

// providerNames mirrors the aliases accepted by the provider factory.
var providerNames = []string{"", "auto", "gemini", "google", "anthropic", "claude", "openrouter", "or", "ollama", "local", "localai"}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if !knownProvider(c.LLM.Provider) {
		return errors.Newf("llm.provider %q is not recognized (valid: auto, gemini, anthropic, openrouter, ollama)", c.LLM.Provider)
	}
	if !knownProvider(c.LLM.CodegenProvider) {
		return errors.Newf("llm.codegen_provider %q is not recognized (valid: auto, gemini, anthropic, openrouter, ollama)", c.LLM.CodegenProvider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.Newf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.Newf("llm.max_tokens must be > 0, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.Newf("llm.timeout_seconds must be >= 0, got %d", c.LLM.TimeoutSeconds)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return errors.Newf("llm.requests_per_second must be >= 0, got %g", c.LLM.RequestsPerSecond)
	}

	if c.Local.TimeoutSeconds < 0 {
		return errors.Newf("local.timeout_seconds must be >= 0, got %d", c.Local.TimeoutSeconds)
	}
	if c.Local.ContextSize < 0 {
		return errors.Newf("local.context_size must be >= 0, got %d", c.Local.ContextSize)
	}

	switch c.Generation.Strategy {
	case StrategyCompiler, StrategyLLM:
	default:
		return errors.Newf("generation.strategy must be %q or %q, got %q", StrategyCompiler, StrategyLLM, c.Generation.Strategy)
	}
	// 0 selects the default budget
	if c.Generation.MaxAttempts < 0 {
		return errors.Newf("generation.max_attempts must be >= 0, got %d", c.Generation.MaxAttempts)
	}

	if _, err := validate.New(c.Validator.Strategy, validate.Options{}); err != nil {
		return errors.Wrap(err, "validator.strategy")
	}

	if _, err := render.ParseFormat(c.Render.Format); err != nil {
		return errors.Wrap(err, "render.format")
	}
	if c.Render.TimeoutSeconds < 0 {
		return errors.Newf("render.timeout_seconds must be >= 0, got %d", c.Render.TimeoutSeconds)
	}

	if c.Database.Enabled && strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path cannot be empty when database.enabled is true")
	}
	return nil
}

func knownProvider(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range providerNames {
		if name == p {
			return true
		}
	}
	return false
}

// UnknownKeys decodes a TOML file against Config and returns keys that no
// field consumes, e.g. a misspelled "render.fromat".
func UnknownKeys(path string) ([]string, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	var keys []string
	for _, k := range md.Undecoded() {
		keys = append(keys, k.String())
	}
	return keys, nil
}
