// Package provider is the seam between the diagram agents and concrete LLM
// backends. Agents depend only on Client; the factory builds one from config.
package provider

import (
	"context"
	"strings"

	"github.com/kenjpais/diagram-generator/ai/openrouter"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a prompt
type Message struct {
	Role    string
	Content string
}

// Client generates a completion for an ordered message list.
type Client interface {
	Generate(ctx context.Context, msgs []Message) (string, error)
}

// Params carries per-call sampling overrides. Zero values keep the client's defaults.
type Params struct {
	Temperature *float64
	MaxTokens   *int
	Operation   string
}

// ParamClient is an optional interface for clients that accept Params.
// Check with a type assertion, or use Call.
type ParamClient interface {
	Client
	GenerateWith(ctx context.Context, msgs []Message, p Params) (string, error)
}

// Call uses GenerateWith when c supports it and falls back to Generate.
func Call(ctx context.Context, c Client, msgs []Message, p Params) (string, error) {
	if pc, ok := c.(ParamClient); ok {
		return pc.GenerateWith(ctx, msgs, p)
	}
	return c.Generate(ctx, msgs)
}

// Chatter is implemented by every backend client in ai/.
type Chatter interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// FromChatter adapts a backend to Client
func FromChatter(ch Chatter) ParamClient {
	return &chatClient{chatter: ch}
}

type chatClient struct {
	chatter Chatter
}

func (c *chatClient) Generate(ctx context.Context, msgs []Message) (string, error) {
	return c.GenerateWith(ctx, msgs, Params{})
}

func (c *chatClient) GenerateWith(ctx context.Context, msgs []Message, p Params) (string, error) {
	req := openrouter.ChatRequest{
		Messages:    toChat(msgs),
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Operation:   p.Operation,
	}
	resp, err := c.chatter.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func toChat(msgs []Message) []openrouter.Message {
	out := make([]openrouter.Message, len(msgs))
	for i, m := range msgs {
		out[i] = openrouter.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
