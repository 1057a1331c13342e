package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	sentinels := []error{ErrSchema, ErrExtraction, ErrMaxRetries, ErrRender, ErrRenderTimeout, ErrCorrection}

	for _, s := range sentinels {
		t.Run(s.Error(), func(t *testing.T) {
			wrapped := Wrapf(s, "layer %d", 1)
			wrapped = Wrap(wrapped, "layer 2")

			assert.True(t, Is(wrapped, s))
			assert.Contains(t, wrapped.Error(), "layer 2")
			assert.Contains(t, wrapped.Error(), s.Error())
		})
	}
}

func TestRenderTimeoutMatchesRender(t *testing.T) {
	err := NewRenderTimeoutError("dot exceeded %ds", 30)

	assert.True(t, Is(err, ErrRenderTimeout))
	assert.True(t, Is(err, ErrRender))
	assert.True(t, IsRenderError(err))
	assert.Contains(t, err.Error(), "dot exceeded 30s")
}

func TestIsRenderError(t *testing.T) {
	assert.False(t, IsRenderError(nil))
	assert.False(t, IsRenderError(New("unrelated")))
	assert.True(t, IsRenderError(Wrap(ErrRender, "exit status 1")))
}

func TestInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("unknown format %q", "bmp")
	require.Error(t, err)
	assert.True(t, Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), `unknown format "bmp"`)
}

func TestHintsSurviveWrapping(t *testing.T) {
	err := WithHint(ErrNotConfigured, "set GEMINI_API_KEY")
	err = Wrap(err, "gemini provider")

	assert.True(t, Is(err, ErrNotConfigured))
	assert.Equal(t, []string{"set GEMINI_API_KEY"}, GetAllHints(err))
}

type validatorError struct {
	msg string
}

func (e *validatorError) Error() string {
	return e.msg
}

func TestAs(t *testing.T) {
	original := &validatorError{msg: "syntax error near line 3"}
	wrapped := Wrap(original, "attempt 2")

	var target *validatorError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, "syntax error near line 3", target.msg)
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func ExampleWrap() {
	err := Wrap(ErrMaxRetries, "diagram generation")
	fmt.Println(err)
	// Output: diagram generation: max retries exceeded
}
