// Package prompt loads the YAML prompt templates used by the LLM agents.
//
// Defaults are embedded in the binary. When a directory is configured
// (generation.prompts_dir), a file there with the same name replaces the
// embedded one; other prompts keep their defaults.
package prompt

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/kenjpais/diagram-generator/ai/provider"
	"github.com/kenjpais/diagram-generator/errors"
)

// Prompt names
const (
	IntentExtraction = "intent_extraction"
	CodeGeneration   = "code_generation"
	ErrorCorrection  = "error_correction"
)

// Names lists every prompt the agents need
var Names = []string{IntentExtraction, CodeGeneration, ErrorCorrection}

//go:embed prompts/*.yaml
var embedded embed.FS

// File is the on-disk shape of a prompt
type File struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Version        string   `yaml:"version"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      *int     `yaml:"max_tokens"`
	System         string   `yaml:"system"`
	Human          string   `yaml:"human"`
	FewShotExample string   `yaml:"few_shot_example"`
}

// Template is a parsed, validated prompt
type Template struct {
	File
	Source  string // "embedded" or the override path
	version *semver.Version
	system  *template.Template
	human   *template.Template
}

// Loader resolves prompts from an optional override directory, then the embedded set.
type Loader struct {
	dir string
}

// NewLoader returns a Loader. dir may be empty.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads and validates one prompt by name
func (l *Loader) Load(name string) (*Template, error) {
	file := name + ".yaml"
	if l.dir != "" {
		path := filepath.Join(l.dir, file)
		data, err := os.ReadFile(path)
		if err == nil {
			return Parse(data, path)
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read prompt %s", path)
		}
	}
	data, err := embedded.ReadFile("prompts/" + file)
	if err != nil {
		return nil, errors.Newf("prompt %q not found", name)
	}
	return Parse(data, "embedded")
}

// LoadAll loads every prompt in Names, failing on the first invalid one.
func (l *Loader) LoadAll() (map[string]*Template, error) {
	out := make(map[string]*Template, len(Names))
	for _, name := range Names {
		t, err := l.Load(name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

// Parse decodes and validates prompt YAML. source names it in errors.
func Parse(data []byte, source string) (*Template, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "invalid prompt YAML in %s", source)
	}
	t := &Template{File: f, Source: source}
	if err := t.validate(); err != nil {
		return nil, errors.Wrapf(err, "prompt %s", source)
	}

	var err error
	if t.system, err = parseText(f.Name+".system", f.System); err != nil {
		return nil, errors.Wrapf(err, "prompt %s", source)
	}
	if t.human, err = parseText(f.Name+".human", f.Human); err != nil {
		return nil, errors.Wrapf(err, "prompt %s", source)
	}
	return t, nil
}

func (t *Template) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	v, err := semver.NewVersion(t.Version)
	if err != nil {
		return errors.Wrapf(err, "version %q is not semver", t.Version)
	}
	t.version = v
	if t.Temperature != nil && (*t.Temperature < 0 || *t.Temperature > 2) {
		return errors.Newf("temperature must be within [0, 2], got %g", *t.Temperature)
	}
	if t.MaxTokens != nil && *t.MaxTokens <= 0 {
		return errors.Newf("max_tokens must be > 0, got %d", *t.MaxTokens)
	}
	if strings.TrimSpace(t.Human) == "" {
		return errors.New("human template is required")
	}
	return nil
}

func parseText(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

// SemVer returns the parsed version
func (t *Template) SemVer() *semver.Version { return t.version }

// Render fills both templates. The few-shot example, when present, is
// appended to the system message.
func (t *Template) Render(vars map[string]string) ([]provider.Message, error) {
	system, err := execute(t.system, vars)
	if err != nil {
		return nil, err
	}
	human, err := execute(t.human, vars)
	if err != nil {
		return nil, err
	}
	if ex := strings.TrimSpace(t.FewShotExample); ex != "" {
		system = strings.TrimSpace(system) + "\n\n" + ex
	}

	var msgs []provider.Message
	if s := strings.TrimSpace(system); s != "" {
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: s})
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: strings.TrimSpace(human)})
	return msgs, nil
}

// Params returns the prompt's sampling overrides for provider.Call
func (t *Template) Params() provider.Params {
	return provider.Params{Temperature: t.Temperature, MaxTokens: t.MaxTokens, Operation: t.Name}
}

func execute(tmpl *template.Template, vars map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", tmpl.Name())
	}
	return buf.String(), nil
}
