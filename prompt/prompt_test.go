package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/ai/provider"
)

func TestEmbeddedPromptsAreValid(t *testing.T) {
	all, err := NewLoader("").LoadAll()
	require.NoError(t, err)
	require.Len(t, all, len(Names))

	for name, tmpl := range all {
		assert.Equal(t, name, tmpl.Name)
		assert.Equal(t, "embedded", tmpl.Source)
		assert.NotNil(t, tmpl.SemVer())
		require.NotNil(t, tmpl.Temperature, name)
		assert.Equal(t, 0.1, *tmpl.Temperature, name)
	}
}

func TestRender_IntentExtraction(t *testing.T) {
	tmpl, err := NewLoader("").Load(IntentExtraction)
	require.NoError(t, err)

	msgs, err := tmpl.Render(map[string]string{"Request": "web app with a db", "Document": ""})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, provider.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Example reply", "few-shot example appended to system")
	assert.Equal(t, provider.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "web app with a db")
	assert.NotContains(t, msgs[1].Content, "Reference document")

	msgs, err = tmpl.Render(map[string]string{"Request": "r", "Document": "## Services\nauth, billing"})
	require.NoError(t, err)
	assert.Contains(t, msgs[1].Content, "Reference document:\n## Services")
}

func TestRender_MissingVariable(t *testing.T) {
	tmpl, err := NewLoader("").Load(ErrorCorrection)
	require.NoError(t, err)

	_, err = tmpl.Render(map[string]string{"GraphContext": "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error_correction.human")
}

func TestParams(t *testing.T) {
	tmpl, err := NewLoader("").Load(CodeGeneration)
	require.NoError(t, err)

	p := tmpl.Params()
	assert.Equal(t, CodeGeneration, p.Operation)
	require.NotNil(t, p.MaxTokens)
	assert.Equal(t, 4096, *p.MaxTokens)
}

func TestLoader_OverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := `
name: code_generation
version: 2.0.0-beta.1
system: "Write DOT for {{.Title}}"
human: "{{.GraphContext}}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code_generation.yaml"), []byte(override), 0644))

	l := NewLoader(dir)
	tmpl, err := l.Load(CodeGeneration)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "code_generation.yaml"), tmpl.Source)
	assert.Equal(t, "2.0.0-beta.1", tmpl.SemVer().String())
	assert.Nil(t, tmpl.Temperature)

	msgs, err := tmpl.Render(map[string]string{"Title": "T", "GraphContext": "{}"})
	require.NoError(t, err)
	assert.Equal(t, []provider.Message{
		{Role: provider.RoleSystem, Content: "Write DOT for T"},
		{Role: provider.RoleUser, Content: "{}"},
	}, msgs)

	// prompts not present in the directory fall back to the embedded set
	other, err := l.Load(IntentExtraction)
	require.NoError(t, err)
	assert.Equal(t, "embedded", other.Source)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		errContains string
	}{
		{"bad version", "name: x\nversion: one\nhuman: h\n", "not semver"},
		{"temperature", "name: x\nversion: 1.0.0\ntemperature: 2.5\nhuman: h\n", "temperature"},
		{"max tokens", "name: x\nversion: 1.0.0\nmax_tokens: 0\nhuman: h\n", "max_tokens"},
		{"missing name", "version: 1.0.0\nhuman: h\n", "name is required"},
		{"missing human", "name: x\nversion: 1.0.0\n", "human template"},
		{"bad template", "name: x\nversion: 1.0.0\nhuman: \"{{.Broken\"\n", "prompt test"},
		{"bad yaml", "name: [x\n", "invalid prompt YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "test")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load("nope")
	assert.ErrorContains(t, err, `prompt "nope" not found`)
}
