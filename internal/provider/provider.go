// Package provider holds the registry of known Anthropic-compatible API
// providers and the logic that merges a provider's connection defaults into
// session options. Claude-compatible CLIs honor ANTHROPIC_BASE_URL, so any
// endpoint speaking the Anthropic message format can be selected here.
package provider

import (
	"errors"
	"fmt"
)

// Well-known environment variables read by the Claude CLI launcher.
const (
	// EnvBaseURL points the CLI at an alternative Anthropic-compatible endpoint.
	EnvBaseURL = "ANTHROPIC_BASE_URL"
	// EnvAuthToken carries the bearer token for the selected endpoint.
	EnvAuthToken = "ANTHROPIC_AUTH_TOKEN"
	// EnvModel selects the model when the endpoint needs an explicit one.
	EnvModel = "ANTHROPIC_MODEL"
	// EnvUseBedrock enables the AWS Bedrock backend when truthy.
	EnvUseBedrock = "CLAUDE_CODE_USE_BEDROCK"
	// EnvUseVertex enables the Google Vertex AI backend when truthy.
	EnvUseVertex = "CLAUDE_CODE_USE_VERTEX"
)

var (
	// ErrUnknownProvider is returned when a provider name is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrProviderUnsupported is returned for registered providers that cannot
	// be used for session creation (cloud backends needing external auth).
	ErrProviderUnsupported = errors.New("provider not currently supported")
)

// Config describes one provider's connection defaults.
type Config struct {
	// Name is the unique registry key.
	Name string `yaml:"name"`
	// DisplayName is the human-readable label.
	DisplayName string `yaml:"display_name"`
	// BaseURL overrides the platform default endpoint when non-empty.
	BaseURL string `yaml:"base_url"`
	// EnvVars are fixed environment variables applied when the provider is selected.
	EnvVars map[string]string `yaml:"env_vars"`
	// DefaultModel is used when the caller supplies no model.
	DefaultModel string `yaml:"default_model"`
	// Description is a short note shown in listings.
	Description string `yaml:"description"`
	// Official marks vendor-blessed providers.
	Official bool `yaml:"official"`
	// Supported marks providers usable via NewOptionsForProvider.
	Supported bool `yaml:"supported"`
}

// builtins is the read-only provider table, in listing order.
var builtins = []Config{
	{
		Name:        "anthropic",
		DisplayName: "Anthropic",
		Description: "Native Anthropic API (default)",
		Official:    true,
		Supported:   true,
	},
	{
		Name:        "bedrock",
		DisplayName: "AWS Bedrock",
		EnvVars:     map[string]string{EnvUseBedrock: "1"},
		Description: "AWS Bedrock Claude models",
		Official:    true,
	},
	{
		Name:        "vertex",
		DisplayName: "Google Vertex AI",
		EnvVars:     map[string]string{EnvUseVertex: "1"},
		Description: "Google Vertex AI Claude models",
		Official:    true,
	},
	{
		Name:         "deepseek",
		DisplayName:  "DeepSeek",
		BaseURL:      "https://api.deepseek.com/anthropic",
		DefaultModel: "deepseek-chat",
		Description:  "DeepSeek API with Anthropic compatibility",
		Supported:    true,
	},
	{
		Name:         "deepseek-reasoner",
		DisplayName:  "DeepSeek Reasoner",
		BaseURL:      "https://api.deepseek.com/anthropic",
		DefaultModel: "deepseek-reasoner",
		Description:  "DeepSeek R1 reasoning model",
		Supported:    true,
	},
	{
		Name:         "glm",
		DisplayName:  "GLM (Z.AI)",
		BaseURL:      "https://api.z.ai/api/anthropic",
		DefaultModel: "glm-4.5-air",
		Description:  "GLM models via Z.AI Anthropic-compatible API",
		Supported:    true,
	},
	{
		Name:         "openrouter",
		DisplayName:  "OpenRouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "anthropic/claude-3.5-sonnet",
		Description:  "OpenRouter aggregator (requires a routing proxy)",
		Supported:    true,
	},
}

// extras holds user-registered providers appended after the builtins.
// The slice is only mutated through RegisterExtra during startup.
var extras []Config

// Get returns the provider registered under name.
func Get(name string) (Config, bool) {
	for _, cfg := range builtins {
		if cfg.Name == name {
			return cfg, true
		}
	}
	for _, cfg := range extras {
		if cfg.Name == name {
			return cfg, true
		}
	}
	return Config{}, false
}

// List returns registered providers in registration order. With officialOnly
// set, only vendor-blessed entries are returned.
func List(officialOnly bool) []Config {
	all := make([]Config, 0, len(builtins)+len(extras))
	all = append(all, builtins...)
	all = append(all, extras...)
	if !officialOnly {
		return all
	}
	official := make([]Config, 0, len(all))
	for _, cfg := range all {
		if cfg.Official {
			official = append(official, cfg)
		}
	}
	return official
}

// NewCustom builds a descriptor for an ad-hoc endpoint such as a local proxy.
// Custom providers are never official and are not added to the registry.
func NewCustom(name, baseURL string, opts ...CustomOption) Config {
	cfg := Config{
		Name:        name,
		DisplayName: name,
		BaseURL:     baseURL,
		Supported:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// CustomOption adjusts optional fields of a custom provider descriptor.
type CustomOption func(*Config)

// WithDisplayName sets a human-readable label for a custom provider.
func WithDisplayName(displayName string) CustomOption {
	return func(cfg *Config) { cfg.DisplayName = displayName }
}

// WithDefaultModel sets the model used when a caller supplies none.
func WithDefaultModel(model string) CustomOption {
	return func(cfg *Config) { cfg.DefaultModel = model }
}

// WithDescription sets the listing description for a custom provider.
func WithDescription(description string) CustomOption {
	return func(cfg *Config) { cfg.Description = description }
}

// RegisterExtra appends a user-defined provider after the builtins. Names
// shadowing an existing entry are rejected so the builtin table stays stable.
func RegisterExtra(cfg Config) error {
	if cfg.Name == "" {
		return errors.New("provider name required")
	}
	if _, exists := Get(cfg.Name); exists {
		return fmt.Errorf("provider %q already registered", cfg.Name)
	}
	cfg.Official = false
	extras = append(extras, cfg)
	return nil
}
