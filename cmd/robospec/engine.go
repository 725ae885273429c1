package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"robospec/internal/apisurface"
	"robospec/internal/config"
	"robospec/internal/generator"
	"robospec/internal/knowledge"
	"robospec/internal/llm"
	"robospec/internal/logging"
	"robospec/internal/repair"
)

func newRegistry(c *config.Config) *apisurface.Registry {
	return apisurface.New(apisurface.Options{
		ReferenceDir: c.Registry.ReferenceDir,
		ManifestPath: c.Registry.Manifest,
		UseEmbedded:  c.Registry.Embedded,
	})
}

// newClient builds the configured LLM client.
func newClient(ctx context.Context, c *config.Config) (llm.Client, error) {
	defaults := llm.CallOptions{Temperature: c.LLM.Temperature, MaxTokens: c.LLM.MaxTokens}
	switch c.LLM.Provider {
	case config.ProviderGemini:
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:   c.LLM.GeminiKey,
			Model:    c.LLM.Model,
			Defaults: defaults,
		})
	default:
		oc := llm.DefaultOpenAIConfig(c.LLM.NVIDIAKey, c.LLM.OpenRouterKey)
		oc.Endpoints[0].URL = c.LLM.NIMURL
		oc.Endpoints[1].URL = c.LLM.OpenRouterURL
		if c.LLM.Model != "" {
			oc.Model = c.LLM.Model
		}
		oc.Defaults = defaults
		oc.Timeout = c.GetLLMTimeout()
		oc.MaxRetries = c.LLM.MaxRetries
		return llm.NewOpenAIClient(oc)
	}
}

// engine bundles an orchestrator with what it was built from.
type engine struct {
	registry     *apisurface.Registry
	orchestrator *repair.Orchestrator
	watcher      *apisurface.Watcher
}

func (e *engine) Close() {
	if e.watcher != nil {
		e.watcher.Stop()
	}
}

// newEngine wires the repair loop. With a nil client the loop runs the local
// pass only.
func newEngine(ctx context.Context, c *config.Config, client llm.Client) (*engine, error) {
	reg := newRegistry(c)
	deps := repair.Deps{Symbols: reg}
	if client != nil {
		deps.Generator = generator.New(client, nil)
		deps.Context = knowledge.NewBuilder(c.Knowledge.Dir, nil)
	}
	e := &engine{
		registry:     reg,
		orchestrator: repair.New(repair.Config{MaxAttempts: c.Repair.MaxAttempts}, deps),
	}

	if c.Registry.Watch && c.Registry.ReferenceDir != "" {
		if _, err := os.Stat(c.Registry.ReferenceDir); err == nil {
			w, err := apisurface.NewWatcher(reg)
			if err != nil {
				return nil, fmt.Errorf("registry watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				w.Stop()
				return nil, fmt.Errorf("registry watcher: %w", err)
			}
			e.watcher = w
		}
	}
	return e, nil
}

// newRemoteEngine is newEngine with the configured LLM client.
func newRemoteEngine(ctx context.Context, c *config.Config) (*engine, error) {
	client, err := newClient(ctx, c)
	if errors.Is(err, llm.ErrNoAPIKey) {
		return nil, fmt.Errorf("%w (provider %s)", err, c.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}
	logging.Boot("LLM provider %s", c.LLM.Provider)
	return newEngine(ctx, c, client)
}

// knowledgeFor builds the prompt context for a category from the configured
// knowledge directory.
func knowledgeFor(category string) (string, error) {
	return knowledge.NewBuilder(cfg.Knowledge.Dir, nil).BuildContext(category)
}
