package tracker

import "strings"

// ModelPricing is USD per million tokens
type ModelPricing struct {
	PromptPrice     float64
	CompletionPrice float64
}

// DefaultPricingFallback is charged per request when a remote model's price is unknown
const DefaultPricingFallback = 0.01

// Prices as published by each vendor. OpenRouter ids carry a vendor prefix.
var modelPricing = map[string]map[string]ModelPricing{
	"gemini": {
		"gemini-1.5-flash":      {PromptPrice: 0.075, CompletionPrice: 0.30},
		"gemini-1.5-flash-8b":   {PromptPrice: 0.0375, CompletionPrice: 0.15},
		"gemini-1.5-pro":        {PromptPrice: 1.25, CompletionPrice: 5.00},
		"gemini-2.0-flash":      {PromptPrice: 0.10, CompletionPrice: 0.40},
		"gemini-2.0-flash-lite": {PromptPrice: 0.075, CompletionPrice: 0.30},
	},
	"anthropic": {
		"claude-sonnet-4-20250514":   {PromptPrice: 3.00, CompletionPrice: 15.00},
		"claude-opus-4-20250514":     {PromptPrice: 15.00, CompletionPrice: 75.00},
		"claude-3-5-sonnet-20241022": {PromptPrice: 3.00, CompletionPrice: 15.00},
		"claude-3-5-sonnet-latest":   {PromptPrice: 3.00, CompletionPrice: 15.00},
		"claude-3-5-haiku-20241022":  {PromptPrice: 0.80, CompletionPrice: 4.00},
		"claude-3-5-haiku-latest":    {PromptPrice: 0.80, CompletionPrice: 4.00},
		"claude-3-opus-20240229":     {PromptPrice: 15.00, CompletionPrice: 75.00},
		"claude-3-haiku-20240307":    {PromptPrice: 0.25, CompletionPrice: 1.25},
		"claude-sonnet-4":            {PromptPrice: 3.00, CompletionPrice: 15.00},
		"claude-opus-4":              {PromptPrice: 15.00, CompletionPrice: 75.00},
	},
	"openrouter": {
		"openai/gpt-4o":                     {PromptPrice: 2.50, CompletionPrice: 10.00},
		"openai/gpt-4o-mini":                {PromptPrice: 0.15, CompletionPrice: 0.60},
		"openai/gpt-4-turbo":                {PromptPrice: 10.00, CompletionPrice: 30.00},
		"openai/gpt-3.5-turbo":              {PromptPrice: 0.50, CompletionPrice: 1.50},
		"anthropic/claude-3.5-sonnet":       {PromptPrice: 3.00, CompletionPrice: 15.00},
		"anthropic/claude-3-haiku":          {PromptPrice: 0.25, CompletionPrice: 1.25},
		"google/gemini-pro-1.5":             {PromptPrice: 1.25, CompletionPrice: 5.00},
		"google/gemini-flash-1.5":           {PromptPrice: 0.075, CompletionPrice: 0.30},
		"meta-llama/llama-3.1-70b-instruct": {PromptPrice: 0.52, CompletionPrice: 0.75},
		"meta-llama/llama-3.1-8b-instruct":  {PromptPrice: 0.055, CompletionPrice: 0.055},
	},
}

// GetPricing returns the price table entry for a provider's model
func GetPricing(provider, model string) (ModelPricing, bool) {
	p, ok := modelPricing[strings.ToLower(provider)][model]
	return p, ok
}

// CalculateCost returns the USD cost of one call. Local inference is free;
// unknown remote models cost DefaultPricingFallback.
func CalculateCost(provider, model string, promptTokens, completionTokens int) float64 {
	if strings.EqualFold(provider, "local") || strings.EqualFold(provider, "ollama") {
		return 0
	}
	pricing, found := GetPricing(provider, model)
	if !found {
		return DefaultPricingFallback
	}
	promptCost := (float64(promptTokens) / 1_000_000.0) * pricing.PromptPrice
	completionCost := (float64(completionTokens) / 1_000_000.0) * pricing.CompletionPrice
	return promptCost + completionCost
}
