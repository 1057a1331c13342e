package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/errors"
)

func TestClient_Configuration(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, 0.1, c.config.Temperature)
	assert.Equal(t, 4096, c.config.MaxTokens)
	assert.True(t, c.IsConfigured())
	assert.False(t, NewClient(Config{}).IsConfigured())
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := NewClient(Config{}).Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}

func TestClient_Chat(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"model": "openai/gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "  digraph G {}\n"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key"})
	c.SetHTTPClient(srv.Client(), srv.URL)

	temp := 0.0
	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "system", Content: "be terse"}, {Role: "user", Content: "draw"}},
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "digraph G {}", resp.Content)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	assert.Equal(t, "openai/gpt-4o-mini", got.Model)
	assert.Equal(t, 0.0, got.Temperature, "explicit zero temperature overrides the default")
	assert.Equal(t, 4096, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k"})
	c.SetHTTPClient(srv.Client(), srv.URL)

	resp, err := c.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.EqualValues(t, 2, calls)
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k"})
	c.SetHTTPClient(srv.Client(), srv.URL)

	_, err := c.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.EqualValues(t, 1, calls)
}

func TestClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k"})
	c.SetHTTPClient(srv.Client(), srv.URL)

	_, err := c.Chat(context.Background(), ChatRequest{})
	assert.ErrorContains(t, err, "no response choices")
}

func TestResolveParams(t *testing.T) {
	m, temp, tokens := ResolveParams(ChatRequest{}, "a", 0.3, 100)
	assert.Equal(t, "a", m)
	assert.Equal(t, 0.3, temp)
	assert.Equal(t, 100, tokens)

	model, zero, max := "b", 0.0, 50
	m, temp, tokens = ResolveParams(ChatRequest{Model: &model, Temperature: &zero, MaxTokens: &max}, "a", 0.3, 100)
	assert.Equal(t, "b", m)
	assert.Equal(t, 0.0, temp)
	assert.Equal(t, 50, tokens)
}
