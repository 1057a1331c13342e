package am

import (
	"sort"
	"strings"

	"github.com/kenjpais/diagram-generator/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/diagen/config.toml
	SourceUser        ConfigSource = "user"        // ~/.diagen/config.toml
	SourceProject     ConfigSource = "project"     // diagen.toml found upward from the working directory
	SourceFlag        ConfigSource = "flag"        // --config file
	SourceDotEnv      ConfigSource = "dotenv"      // .env
	SourceEnvironment ConfigSource = "environment" // DIAGEN_* or a bare alias
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path, file:NAME for .env, or the env var name
}

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// ConfigIntrospection provides metadata about the active configuration
type ConfigIntrospection struct {
	Files    []string      `json:"files" yaml:"files"`
	Settings []SettingInfo `json:"settings" yaml:"settings"`
}

// sensitiveSuffixes mark keys whose values are masked in introspection output.
var sensitiveSuffixes = []string{"api_key", "token", "secret"}

// IsSensitive reports whether key holds a credential.
func IsSensitive(key string) bool {
	for _, s := range sensitiveSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// Mask hides all but the last four characters of a secret.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// Introspect reports every effective key with the source that set it.
// Credentials are masked.
func (l *Loader) Introspect() (*ConfigIntrospection, error) {
	if l.v == nil {
		return nil, errors.New("config not loaded")
	}

	keys := l.v.AllKeys()
	sort.Strings(keys)

	out := &ConfigIntrospection{Files: l.Files(), Settings: make([]SettingInfo, 0, len(keys))}
	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := l.sources[key]; ok {
			info = si
		}
		if name := envOverride(key); name != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: name}
		}

		value := l.v.Get(key)
		if IsSensitive(key) {
			if s, ok := value.(string); ok {
				value = Mask(s)
			}
		}
		out.Settings = append(out.Settings, SettingInfo{
			Key:        key,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
	return out, nil
}

// SourceOf returns where a single key came from.
func (l *Loader) SourceOf(key string) SourceInfo {
	if name := envOverride(key); name != "" {
		return SourceInfo{Source: SourceEnvironment, Path: name}
	}
	if si, ok := l.sources[key]; ok {
		return si
	}
	return SourceInfo{Source: SourceDefault, Path: "built-in default"}
}

// Summary counts settings per source.
func (ci *ConfigIntrospection) Summary() map[ConfigSource]int {
	counts := make(map[ConfigSource]int)
	for _, s := range ci.Settings {
		counts[s.Source]++
	}
	return counts
}
