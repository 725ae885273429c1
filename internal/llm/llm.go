// Package llm holds the chat completion clients used to generate and repair
// environment configs.
package llm

import (
	"context"
	"errors"
)

// Default endpoints and model.
const (
	NIMURL        = "https://integrate.api.nvidia.com/v1/chat/completions"
	OpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel  = "nvidia/llama-3.3-nemotron-super-49b-v1"

	DefaultGeminiModel = "gemini-2.5-flash"

	DefaultTemperature = 0.2
	DefaultMaxTokens   = 8192
)

// ErrNoAPIKey is returned when no provider has a key configured.
var ErrNoAPIKey = errors.New("no API key set: set NVIDIA_API_KEY, OPENROUTER_API_KEY or GEMINI_API_KEY")

// Client sends one system/user exchange and returns the assistant text.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error)
}

// CallOptions are per-call sampling settings.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
}

// Option adjusts CallOptions.
type Option func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *CallOptions) { o.Temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(o *CallOptions) { o.MaxTokens = n }
}

func resolve(base CallOptions, opts []Option) CallOptions {
	if base.Temperature == 0 {
		base.Temperature = DefaultTemperature
	}
	if base.MaxTokens <= 0 {
		base.MaxTokens = DefaultMaxTokens
	}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
