package provider

import (
	"fmt"

	"github.com/cameroncode/cameroncode/internal/claude"
)

// ApplyOptions carries the caller-supplied overrides for Apply.
type ApplyOptions struct {
	// APIKey is written to the auth token variable when non-empty.
	APIKey string
	// Model overrides the provider's default model.
	Model string
	// Env entries are applied last and win over everything the provider set.
	Env map[string]string
}

// Apply merges a provider's connection defaults into base and returns the
// resulting options. The base value is not mutated; only its environment
// mapping is replaced, every other field is carried over unchanged.
//
// Later stages override earlier ones: provider env vars, then base URL, then
// API key, then model, then the caller's Env overrides.
func Apply(base claude.Options, cfg Config, opts ApplyOptions) claude.Options {
	env := make(map[string]string, len(base.Env)+len(cfg.EnvVars)+len(opts.Env)+3)
	for key, value := range base.Env {
		env[key] = value
	}
	for key, value := range cfg.EnvVars {
		env[key] = value
	}
	if cfg.BaseURL != "" {
		env[EnvBaseURL] = cfg.BaseURL
	}
	if opts.APIKey != "" {
		env[EnvAuthToken] = opts.APIKey
	}
	model := opts.Model
	if model == "" {
		model = cfg.DefaultModel
	}
	if model != "" {
		env[EnvModel] = model
	}
	for key, value := range opts.Env {
		env[key] = value
	}

	merged := base
	if len(env) == 0 {
		// No overrides at all normalizes to an unset mapping.
		merged.Env = nil
	} else {
		merged.Env = env
	}
	return merged
}

// ApplyNamed resolves name in the registry and applies it to base. Unknown
// names fail before any environment merging happens.
func ApplyNamed(base claude.Options, name string, opts ApplyOptions) (claude.Options, error) {
	cfg, ok := Get(name)
	if !ok {
		return claude.Options{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return Apply(base, cfg, opts), nil
}

// SessionRequest collects the per-session inputs for NewOptionsForProvider.
type SessionRequest struct {
	// APIKey authenticates against the provider endpoint.
	APIKey string
	// Model overrides the provider's default model.
	Model string
	// CWD is the session working directory.
	CWD string
	// SettingSources limits settings loading; nil defaults to ["project"].
	SettingSources []string
	// Env entries override anything the provider configured.
	Env map[string]string
}

// NewOptionsForProvider builds session options configured for a named
// provider. Providers that exist but cannot drive a session (cloud backends
// needing their own credential setup) are rejected with a distinct error so
// callers can tell "never existed" from "exists but disabled".
func NewOptionsForProvider(name string, req SessionRequest) (claude.Options, error) {
	cfg, ok := Get(name)
	if !ok {
		return claude.Options{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !cfg.Supported {
		return claude.Options{}, fmt.Errorf("%w: %s", ErrProviderUnsupported, name)
	}

	sources := req.SettingSources
	if sources == nil {
		sources = []string{"project"}
	}
	base := claude.Options{
		CWD:            req.CWD,
		SettingSources: sources,
	}
	return Apply(base, cfg, ApplyOptions{
		APIKey: req.APIKey,
		Model:  req.Model,
		Env:    req.Env,
	}), nil
}
