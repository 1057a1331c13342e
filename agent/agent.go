// Package agent holds the three LLM-backed collaborators of the pipeline:
// the intent extractor, the DOT code generator and the corrector.
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/ai/provider"
	"github.com/kenjpais/diagram-generator/errors"
	"github.com/kenjpais/diagram-generator/extract"
	"github.com/kenjpais/diagram-generator/graph"
	"github.com/kenjpais/diagram-generator/logger"
	"github.com/kenjpais/diagram-generator/prompt"
)

// DefaultTitle is used when the model omits a title
const DefaultTitle = "System Architecture Diagram"

const rawPreviewLimit = 500

// IntentExtractor turns a request (and optional document) into a graph.Model
type IntentExtractor struct {
	client       provider.Client
	prompt       *prompt.Template
	defaultTitle string
	logger       *zap.SugaredLogger
}

// NewIntentExtractor builds an extractor. An empty defaultTitle uses DefaultTitle.
func NewIntentExtractor(client provider.Client, tmpl *prompt.Template, defaultTitle string, log *zap.SugaredLogger) *IntentExtractor {
	if defaultTitle == "" {
		defaultTitle = DefaultTitle
	}
	return &IntentExtractor{client: client, prompt: tmpl, defaultTitle: defaultTitle, logger: orNop(log)}
}

// Extract asks the model for graph JSON and decodes it. Every failure matches errors.ErrExtraction.
func (e *IntentExtractor) Extract(ctx context.Context, request, document string) (*graph.Model, error) {
	msgs, err := e.prompt.Render(map[string]string{"Request": request, "Document": document})
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "intent prompt"), errors.ErrExtraction)
	}

	raw, err := provider.Call(ctx, e.client, msgs, e.prompt.Params())
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "intent extraction request failed"), errors.ErrExtraction)
	}
	e.logger.Debugw("Intent response", append(logger.FieldsFromContext(ctx), logger.FieldSize, len(raw))...)

	if strings.TrimSpace(raw) == "" {
		return nil, extractionError("empty response from model", raw)
	}
	js := extract.JSON(raw)
	if js == "" {
		return nil, extractionError("no JSON object in response", raw)
	}
	js, err = withDefaultTitle(js, e.defaultTitle)
	if err != nil {
		return nil, extractionError(err.Error(), raw)
	}

	m, err := graph.Decode([]byte(js))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to decode graph; raw response: %s", preview(raw)), errors.ErrExtraction)
	}
	for _, w := range m.Lint() {
		e.logger.Warnw("Graph lint", append(logger.FieldsFromContext(ctx), "warning", w)...)
	}
	return m, nil
}

// CodeGenerator asks the model to write DOT for a graph
type CodeGenerator struct {
	client provider.Client
	prompt *prompt.Template
	logger *zap.SugaredLogger
}

// NewCodeGenerator builds an LLM-backed generator
func NewCodeGenerator(client provider.Client, tmpl *prompt.Template, log *zap.SugaredLogger) *CodeGenerator {
	return &CodeGenerator{client: client, prompt: tmpl, logger: orNop(log)}
}

// Generate returns extracted DOT source
func (g *CodeGenerator) Generate(ctx context.Context, m *graph.Model) (string, error) {
	msgs, err := g.prompt.Render(map[string]string{"Title": m.Title, "GraphContext": m.JSON()})
	if err != nil {
		return "", errors.Wrap(err, "code generation prompt")
	}
	raw, err := provider.Call(ctx, g.client, msgs, g.prompt.Params())
	if err != nil {
		return "", errors.Wrap(err, "code generation request failed")
	}
	code := extract.Code(raw, extract.LanguageDOT)
	if code == "" {
		return "", errors.New("code generation returned no source")
	}
	return code, nil
}

// Corrector asks the model to repair DOT that failed validation
type Corrector struct {
	client provider.Client
	prompt *prompt.Template
	logger *zap.SugaredLogger
}

// NewCorrector builds an LLM-backed corrector
func NewCorrector(client provider.Client, tmpl *prompt.Template, log *zap.SugaredLogger) *Corrector {
	return &Corrector{client: client, prompt: tmpl, logger: orNop(log)}
}

// Correct returns repaired source. Errors match errors.ErrCorrection.
func (c *Corrector) Correct(ctx context.Context, m *graph.Model, flawed, errMsg string) (string, error) {
	msgs, err := c.prompt.Render(map[string]string{
		"GraphContext": m.JSON(),
		"FlawedCode":   flawed,
		"ErrorMessage": errMsg,
	})
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "correction prompt"), errors.ErrCorrection)
	}
	raw, err := provider.Call(ctx, c.client, msgs, c.prompt.Params())
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "correction request failed"), errors.ErrCorrection)
	}
	code := extract.Code(raw, extract.LanguageDOT)
	if code == "" {
		return "", errors.Mark(errors.New("corrector returned no source"), errors.ErrCorrection)
	}
	return code, nil
}

// withDefaultTitle fills a missing or blank title. Other fields are left for Decode to check.
func withDefaultTitle(js, title string) (string, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(js), &obj); err != nil {
		return "", errors.Wrap(err, "invalid JSON")
	}
	if obj == nil {
		return "", errors.New("response JSON is not an object")
	}
	if t, ok := obj["title"]; ok {
		if s, isString := t.(string); !isString || strings.TrimSpace(s) != "" {
			return js, nil
		}
	}
	obj["title"] = title
	out, err := json.Marshal(obj)
	if err != nil {
		return "", errors.Wrap(err, "re-encode graph JSON")
	}
	return string(out), nil
}

func extractionError(reason, raw string) error {
	return errors.Wrapf(errors.ErrExtraction, "%s; raw response: %s", reason, preview(raw))
}

func preview(raw string) string {
	r := []rune(raw)
	if len(r) > rawPreviewLimit {
		return string(r[:rawPreviewLimit])
	}
	return raw
}

func orNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
