// Package config holds the resolved control-plane configuration: the model
// catalog, the default model key, the tool approval policy, and server
// settings. Configuration is loaded once at startup and treated as
// read-only for the process lifetime.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider kinds understood by the completion backends. Any other value
// falls back to the OpenAI-compatible kind.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

const (
	defaultListen            = "127.0.0.1:8750"
	defaultCompletionTimeout = 2 * time.Minute
)

// Sentinel errors for configuration validation.
var (
	ErrNoModels            = errors.New("configuration defines no models")
	ErrUnknownDefaultModel = errors.New("default_model does not match any configured model")
)

// ModelConfig describes one configured completion backend.
type ModelConfig struct {
	Provider    string `yaml:"provider"`
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	ModelID     string `yaml:"model_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Duration wraps time.Duration so YAML values like "90s" or "2m" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the resolved control-plane configuration.
type Config struct {
	DefaultModel      string                 `yaml:"default_model"`
	Models            map[string]ModelConfig `yaml:"models"`
	RequireApproval   bool                   `yaml:"require_approval"`
	CompletionTimeout Duration               `yaml:"completion_timeout"`
	Listen            string                 `yaml:"listen"`
}

// Default returns a Config with server defaults and no models.
func Default() Config {
	return Config{
		Models:            make(map[string]ModelConfig),
		CompletionTimeout: Duration(defaultCompletionTimeout),
		Listen:            defaultListen,
	}
}

// Merge applies non-zero values from source into c. Model entries replace
// wholesale by key.
func (c *Config) Merge(source *Config) {
	if source.DefaultModel != "" {
		c.DefaultModel = source.DefaultModel
	}
	if source.RequireApproval {
		c.RequireApproval = true
	}
	if source.CompletionTimeout > 0 {
		c.CompletionTimeout = source.CompletionTimeout
	}
	if source.Listen != "" {
		c.Listen = source.Listen
	}
	for key, model := range source.Models {
		c.Models[key] = model
	}
}

// Validate checks structural invariants: at least one model, and a
// configured default key must exist in the model catalog.
func (c *Config) Validate() error {
	if len(c.Models) == 0 {
		return ErrNoModels
	}
	if c.DefaultModel != "" {
		if _, ok := c.Models[c.DefaultModel]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDefaultModel, c.DefaultModel)
		}
	}
	return nil
}

// Load reads a YAML config file, merges it over defaults, and validates the
// result. Any failure here is startup-fatal for the server.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
