package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"robospec/internal/logging"
)

// Endpoint is one OpenAI-compatible chat completions URL. Endpoints without
// a key are skipped.
type Endpoint struct {
	Name   string
	URL    string
	APIKey string
}

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	Endpoints      []Endpoint // tried in order
	Model          string
	Defaults       CallOptions
	Timeout        time.Duration
	MaxRetries     uint64        // per endpoint, for 429 and 5xx
	InitialBackoff time.Duration // first retry delay
	MaxBackoff     time.Duration
}

// DefaultOpenAIConfig returns NIM first and OpenRouter second.
func DefaultOpenAIConfig(nvidiaKey, openRouterKey string) OpenAIConfig {
	return OpenAIConfig{
		Endpoints: []Endpoint{
			{Name: "nim", URL: NIMURL, APIKey: nvidiaKey},
			{Name: "openrouter", URL: OpenRouterURL, APIKey: openRouterKey},
		},
		Model:          DefaultModel,
		Defaults:       CallOptions{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens},
		Timeout:        120 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

// OpenAIClient talks to OpenAI-compatible chat completion endpoints with
// ordered fallback.
type OpenAIClient struct {
	cfg        OpenAIConfig
	endpoints  []Endpoint
	httpClient *http.Client
}

// NewOpenAIClient returns ErrNoAPIKey when no endpoint has a key.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	var usable []Endpoint
	for _, ep := range cfg.Endpoints {
		if ep.APIKey != "" && ep.URL != "" {
			usable = append(usable, ep)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return &OpenAIClient{
		cfg:        cfg,
		endpoints:  usable,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// statusError is a non-2xx response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Code, e.Body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Complete tries each endpoint in order and returns the first success.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	call := resolve(c.cfg.Defaults, opts)
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: call.Temperature,
		MaxTokens:   call.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var errs []error
	for _, ep := range c.endpoints {
		start := time.Now()
		text, err := c.callWithRetry(ctx, ep, body)
		if err == nil {
			logging.API("%s: completed in %v response_len=%d", ep.Name, time.Since(start), len(text))
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logging.Get(logging.CategoryAPI).Warn("%s failed: %v, trying next endpoint", ep.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", ep.Name, err))
	}
	return "", errors.Join(errs...)
}

func (c *OpenAIClient) callWithRetry(ctx context.Context, ep Endpoint, body []byte) (string, error) {
	var b backoff.BackOff = backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.cfg.InitialBackoff),
		backoff.WithMaxInterval(c.cfg.MaxBackoff),
		backoff.WithMaxElapsedTime(0),
	)
	b = backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)

	op := func() (string, error) {
		text, err := c.call(ctx, ep, body)
		var se *statusError
		if errors.As(err, &se) && !retryable(se.Code) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}
	notify := func(err error, wait time.Duration) {
		logging.APIDebug("%s: retrying in %v: %v", ep.Name, wait, err)
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}

func (c *OpenAIClient) call(ctx context.Context, ep Endpoint, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ep.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return "", backoff.Permanent(fmt.Errorf("parse response: %w", err))
	}
	if cr.Error != nil {
		return "", backoff.Permanent(fmt.Errorf("API error: %s", cr.Error.Message))
	}
	if len(cr.Choices) == 0 {
		return "", backoff.Permanent(errors.New("no completion returned"))
	}
	return cr.Choices[0].Message.Content, nil
}
