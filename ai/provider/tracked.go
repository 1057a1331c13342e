package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kenjpais/diagram-generator/ai/openrouter"
	"github.com/kenjpais/diagram-generator/ai/tracker"
	"github.com/kenjpais/diagram-generator/logger"
)

// Tracked records every Chat call, successful or not, in the usage table.
// Tracking failures are logged and never fail the call.
func Tracked(ch Chatter, t *tracker.UsageTracker, providerName, model string, log *zap.SugaredLogger) Chatter {
	if t == nil {
		return ch
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &trackedChatter{next: ch, tracker: t, provider: providerName, model: model, logger: log}
}

type trackedChatter struct {
	next     Chatter
	tracker  *tracker.UsageTracker
	provider string
	model    string
	logger   *zap.SugaredLogger
}

func (tc *trackedChatter) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	requestTime := time.Now()
	resp, err := tc.next.Chat(ctx, req)
	responseTime := time.Now()

	model := tc.model
	if req.Model != nil && *req.Model != "" {
		model = *req.Model
	}
	usage := &tracker.ModelUsage{
		OperationType:     req.Operation,
		EntityType:        "run",
		EntityID:          logger.RunIDFromContext(ctx),
		ModelName:         model,
		ModelProvider:     tc.provider,
		ModelConfig:       tracker.NewModelConfig(req.Temperature, req.MaxTokens),
		RequestTimestamp:  requestTime,
		ResponseTimestamp: &responseTime,
		Success:           err == nil,
	}
	if usage.OperationType == "" {
		usage.OperationType = "chat"
	}

	if err != nil {
		msg := err.Error()
		usage.ErrorMessage = &msg
	} else {
		if resp.Model != "" {
			usage.ModelName = resp.Model
		}
		tokens := resp.Usage.TotalTokens
		cost := tracker.CalculateCost(tc.provider, usage.ModelName, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		usage.TokensUsed = &tokens
		usage.Cost = &cost
		usage.Metadata = tracker.NewUsageMetadata(tracker.UsageMetadata{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			InputLength:      inputLength(req.Messages),
			OutputLength:     len(resp.Content),
		})
	}

	// a cancelled run still gets its usage row
	if trackErr := tc.tracker.TrackUsage(context.WithoutCancel(ctx), usage); trackErr != nil {
		tc.logger.Warnw("Failed to track usage", logger.FieldError, trackErr, logger.FieldProvider, tc.provider)
	}
	return resp, err
}

func inputLength(msgs []openrouter.Message) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}
