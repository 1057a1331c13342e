package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/errors"
)

const source = "digraph G { a -> b }"

// fakeDot stands in for graphviz: it copies stdin to the -o path.
func fakeDot(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "dot")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

const copyToOutput = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
cat > "$out"`

func newRenderer(t *testing.T, binary, format string, timeout time.Duration) (*Renderer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "nested", "output")
	r, err := New(Config{Binary: binary, Format: format, OutputDir: dir, Timeout: timeout})
	require.NoError(t, err)
	return r, dir
}

func TestRenderWritesTwoFiles(t *testing.T) {
	r, dir := newRenderer(t, fakeDot(t, copyToOutput), "png", time.Second*5)

	artifact, src, err := r.Render(context.Background(), source, "arch")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "arch.png"), artifact)
	assert.Equal(t, filepath.Join(dir, "arch.dot"), src)

	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, source, string(data))

	data, err = os.ReadFile(artifact)
	require.NoError(t, err)
	assert.Equal(t, source, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRenderDefaultBaseName(t *testing.T) {
	r, dir := newRenderer(t, fakeDot(t, copyToOutput), "", time.Second*5)
	r.now = func() time.Time { return time.Date(2024, 1, 31, 15, 45, 2, 0, time.UTC) }

	artifact, src, err := r.Render(context.Background(), source, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "diagram_20240131_154502.svg"), artifact)
	assert.Equal(t, filepath.Join(dir, "diagram_20240131_154502.dot"), src)
}

func TestRenderStripsExtensionFromBaseName(t *testing.T) {
	r, dir := newRenderer(t, fakeDot(t, copyToOutput), "svg", time.Second*5)

	artifact, _, err := r.Render(context.Background(), source, "net.svg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "net.svg"), artifact)
}

func TestRenderRejectsPathsInBaseName(t *testing.T) {
	r, dir := newRenderer(t, fakeDot(t, copyToOutput), "svg", time.Second*5)
	parent := filepath.Dir(dir)

	for _, name := range []string{"../x", `..\x`, "sub/x", "/tmp/x", "..", "../x.svg"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := r.Render(context.Background(), source, name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
			assert.True(t, errors.Is(err, errors.ErrRender))
		})
	}

	assert.NoFileExists(t, filepath.Join(parent, "x.dot"))
	assert.NoFileExists(t, filepath.Join(parent, "x.svg"))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "nothing is written for a rejected name")
}

func TestRenderFailures(t *testing.T) {
	t.Run("non-zero exit", func(t *testing.T) {
		r, dir := newRenderer(t, fakeDot(t, "cat >/dev/null; echo 'Error: <stdin>: syntax error' >&2; exit 1"), "svg", time.Second*5)

		_, _, err := r.Render(context.Background(), source, "bad")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrRender))
		assert.False(t, errors.Is(err, errors.ErrRenderTimeout))
		assert.Contains(t, err.Error(), "syntax error")
		assert.NoFileExists(t, filepath.Join(dir, "bad.dot"))
	})

	t.Run("timeout", func(t *testing.T) {
		r, dir := newRenderer(t, fakeDot(t, "exec sleep 5"), "svg", 100*time.Millisecond)

		_, _, err := r.Render(context.Background(), source, "slow")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrRenderTimeout))
		assert.True(t, errors.Is(err, errors.ErrRender))
		assert.NoFileExists(t, filepath.Join(dir, "slow.dot"))
	})

	t.Run("missing binary", func(t *testing.T) {
		r, _ := newRenderer(t, filepath.Join(t.TempDir(), "absent"), "svg", 0)

		_, _, err := r.Render(context.Background(), source, "x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrRender))
		assert.NotEmpty(t, errors.GetAllHints(err))
		assert.Error(t, r.Available())
	})

	t.Run("cancelled before start writes nothing", func(t *testing.T) {
		r, dir := newRenderer(t, fakeDot(t, copyToOutput), "svg", time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := r.Render(ctx, source, "never")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoDirExists(t, dir)
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": "svg", "SVG": "svg", " png ": "png", "pdf": "pdf"} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("bmp")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = New(Config{Format: "gif"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	r, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, r.Format())
	assert.Equal(t, DefaultOutputDir, r.OutputDir())
	assert.Equal(t, DefaultTimeout, r.runner.Timeout)
}
