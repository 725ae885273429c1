package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all robospec configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Registry  RegistryConfig  `yaml:"registry"`
	Repair    RepairConfig    `yaml:"repair"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the generation and repair model.
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // nemotron, gemini
	Model         string  `yaml:"model"`
	NIMURL        string  `yaml:"nim_url"`
	OpenRouterURL string  `yaml:"openrouter_url"`
	NVIDIAKey     string  `yaml:"nvidia_api_key,omitempty"`
	OpenRouterKey string  `yaml:"openrouter_api_key,omitempty"`
	GeminiKey     string  `yaml:"gemini_api_key,omitempty"`
	Timeout       string  `yaml:"timeout"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	MaxRetries    uint64  `yaml:"max_retries"` // transport retries on 429/5xx
}

// RegistryConfig configures the API surface registry.
type RegistryConfig struct {
	ReferenceDir string `yaml:"reference_dir"`
	Manifest     string `yaml:"manifest"`
	Embedded     bool   `yaml:"embedded"` // include the compiled-in manifest
	Watch        bool   `yaml:"watch"`
}

// RepairConfig bounds the repair loop.
type RepairConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// KnowledgeConfig locates the prompt context files.
type KnowledgeConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig controls where generated packages are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSON       bool            `yaml:"json"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// Providers.
const (
	ProviderNemotron = "nemotron"
	ProviderGemini   = "gemini"
)

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderNemotron, ProviderGemini}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:      ProviderNemotron,
			Model:         "nvidia/llama-3.3-nemotron-super-49b-v1",
			NIMURL:        "https://integrate.api.nvidia.com/v1/chat/completions",
			OpenRouterURL: "https://openrouter.ai/api/v1/chat/completions",
			Timeout:       "120s",
			Temperature:   0.2,
			MaxTokens:     8192,
			MaxRetries:    3,
		},
		Registry: RegistryConfig{
			ReferenceDir: "knowledge/api_reference",
			Embedded:     true,
		},
		Repair: RepairConfig{
			MaxAttempts: 2,
		},
		Knowledge: KnowledgeConfig{
			Dir: "knowledge",
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("NVIDIA_API_KEY"); key != "" {
		c.LLM.NVIDIAKey = key
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.OpenRouterKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiKey = key
		// Gemini takes over only when nothing else can serve.
		if c.LLM.NVIDIAKey == "" && c.LLM.OpenRouterKey == "" {
			c.LLM.Provider = ProviderGemini
			if c.LLM.Model == DefaultConfig().LLM.Model {
				c.LLM.Model = ""
			}
		}
	}
	if model := os.Getenv("ROBOSPEC_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if dir := os.Getenv("ROBOSPEC_KNOWLEDGE_DIR"); dir != "" {
		c.Knowledge.Dir = dir
		c.Registry.ReferenceDir = filepath.Join(dir, "api_reference")
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// HasLLMKey reports whether the configured provider has a key.
func (c *Config) HasLLMKey() bool {
	switch c.LLM.Provider {
	case ProviderGemini:
		return c.LLM.GeminiKey != ""
	default:
		return c.LLM.NVIDIAKey != "" || c.LLM.OpenRouterKey != ""
	}
}

// Validate validates the configuration. API keys are checked separately by
// HasLLMKey since the local commands never call a model.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Repair.MaxAttempts < 0 {
		return fmt.Errorf("repair.max_attempts must be >= 0, got %d", c.Repair.MaxAttempts)
	}

	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
		}
	}

	if !c.Registry.Embedded && c.Registry.ReferenceDir == "" && c.Registry.Manifest == "" {
		return fmt.Errorf("registry has no source: set reference_dir, manifest or embedded")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}
