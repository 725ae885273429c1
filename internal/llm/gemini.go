package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"robospec/internal/logging"
)

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey   string
	Model    string
	Defaults CallOptions
	BaseURL  string // overrides the API endpoint, empty for the default
}

// GeminiClient completes prompts with the Gemini API.
type GeminiClient struct {
	client   *genai.Client
	model    string
	defaults CallOptions
}

// NewGeminiClient returns ErrNoAPIKey when cfg.APIKey is empty.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model, defaults: cfg.Defaults}, nil
}

// Complete sends one exchange.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	call := resolve(c.defaults, opts)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(call.Temperature)),
		MaxOutputTokens: int32(call.MaxTokens),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: no completion returned")
	}
	logging.APIDebug("gemini: response_len=%d", len(text))
	return text, nil
}
