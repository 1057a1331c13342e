package validate

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/compiler"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/graph"
	"github.com/kenjpais/diagram-generator/internal/graphviz"
)

func TestHeuristic(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		valid   bool
		message string
	}{
		{"balanced", "digraph T {A -> B}", true, ""},
		{"undirected graph", "graph T { a -- b }", true, ""},
		{"unclosed", "digraph T {A -> B", false, "Unbalanced braces: 1 unclosed opening brace(s)"},
		{"no keyword", "A -> B", false, "Diagram must start with 'digraph' or 'graph' keyword"},
		{"stray closing", "digraph T {} }", false, "Closing brace without matching opening brace"},
		{"no braces", "digraph T", false, "Missing opening brace"},
		{"brace inside string ignored", `digraph T { a [label="{"] }`, true, ""},
		{"escaped quote stays in string", `digraph T { a [label="say \"}\" now"] }`, true, ""},
		{"leading whitespace trimmed", "\n\t digraph T { }", true, ""},
		{"two unclosed", "digraph T { subgraph s { a", false, "Unbalanced braces: 2 unclosed opening brace(s)"},
		{"brackets are not tracked", "digraph T { a [label=x }", true, ""},
		{"unterminated string hides closing brace", `digraph T { a [label="x] }`, false, "Unbalanced braces: 1 unclosed opening brace(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Heuristic{}.Validate(tt.src)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.message, res.Error)
		})
	}
}

func TestHeuristicAcceptsBalancedGarbage(t *testing.T) {
	// lower fidelity than the parser: structure inside braces is not checked
	src := "digraph T { -> -> [[[ }"
	assert.True(t, Heuristic{}.Validate(src).Valid)
	assert.False(t, Parser{}.Validate(src).Valid)
}

func TestParser(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		valid bool
	}{
		{"balanced", "digraph T {A -> B}", true},
		{"attributes", `digraph G { a [label="x", shape=box]; a -> b [color="#fff"]; }`, true},
		{"unclosed", "digraph T {A -> B", false},
		{"no keyword", "A -> B", false},
		{"unterminated attribute list", "digraph Test {\n    A -> B [label=\"test\"\n}", false},
		{"empty", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parser{}.Validate(tt.src)
			assert.Equal(t, tt.valid, res.Valid, res.Error)
			if !tt.valid {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestParserAcceptsCompilerOutput(t *testing.T) {
	m := &graph.Model{
		Title:  "t",
		Groups: []graph.Group{{ID: "vpc", Label: "VPC", Type: "vpc"}},
		Components: []graph.Component{
			{ID: "api", Label: "API", Type: "api", ParentGroup: graph.StringPtr("vpc")},
			{ID: "db", Label: "DB", Type: "database"},
		},
		Relationships: []graph.Relationship{{Source: "api", Target: "db", Label: "VPN", Type: "vpn_link"}},
	}
	src := compiler.Compile(m)

	res := Parser{}.Validate(src)
	assert.True(t, res.Valid, res.Error)
	assert.True(t, Heuristic{}.Validate(src).Valid)
}

func TestNew(t *testing.T) {
	for _, s := range []string{"", "auto", "parser", "PARSER"} {
		v, err := New(s, Options{})
		require.NoError(t, err)
		assert.IsType(t, Parser{}, v)
	}

	v, err := New("heuristic", Options{})
	require.NoError(t, err)
	assert.IsType(t, Heuristic{}, v)

	v, err = New("dot", Options{DotBinary: "/opt/dot"})
	require.NoError(t, err)
	require.IsType(t, Dot{}, v)
	assert.Equal(t, "/opt/dot", v.(Dot).Runner.Binary)
	assert.Equal(t, 30*time.Second, v.(Dot).Runner.Timeout)

	_, err = New("magic", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Contains(t, err.Error(), "valid: auto, parser, heuristic, dot")
}

func TestFunc(t *testing.T) {
	calls := 0
	v := Func(func(string) Result { calls++; return Invalid("nope") })
	assert.Equal(t, "nope", v.Validate("x").Error)
	assert.Equal(t, 1, calls)
}

// fakeDot writes a shell script standing in for graphviz.
func fakeDot(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "dot")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestDot(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d := Dot{Runner: graphviz.Runner{Binary: fakeDot(t, "cat >/dev/null; exit 0"), Timeout: 5 * time.Second}}
		assert.Equal(t, Ok, d.Validate("digraph {}"))
	})

	t.Run("stderr becomes the error", func(t *testing.T) {
		d := Dot{Runner: graphviz.Runner{Binary: fakeDot(t, "cat >/dev/null; echo 'Error: syntax error in line 1 near x' >&2; exit 1"), Timeout: 5 * time.Second}}
		res := d.Validate("digraph { x")
		assert.False(t, res.Valid)
		assert.Equal(t, "Error: syntax error in line 1 near x", res.Error)
	})

	t.Run("missing binary", func(t *testing.T) {
		d := Dot{Runner: graphviz.Runner{Binary: filepath.Join(t.TempDir(), "no-such-dot")}}
		assert.Equal(t, Invalid("Graphviz 'dot' command not found"), d.Validate("digraph {}"))
	})

	t.Run("timeout", func(t *testing.T) {
		d := Dot{Runner: graphviz.Runner{Binary: fakeDot(t, "exec sleep 5"), Timeout: 100 * time.Millisecond}}
		assert.Equal(t, Invalid("Validation timed out"), d.Validate("digraph {}"))
	})
}
