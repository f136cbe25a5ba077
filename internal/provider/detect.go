package provider

import (
	"fmt"
	"os"
	"strings"
)

// Environ is a snapshot of environment variables. Detection runs against a
// snapshot instead of the live process environment so it stays pure and
// testable; OSEnviron reads the real environment once at the boundary.
type Environ map[string]string

// OSEnviron captures the current process environment.
func OSEnviron() Environ {
	env := make(Environ)
	for _, entry := range os.Environ() {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		env[key] = value
	}
	return env
}

// Info reports which provider is effectively active for a given environment.
type Info struct {
	// Name is the resolved provider name, or "custom".
	Name string
	// DisplayName is the human-readable label.
	DisplayName string
	// Description explains the provider selection.
	Description string
	// BaseURL is the effective endpoint: the observed value when set,
	// otherwise the provider's default.
	BaseURL string
	// Model is the effective model, observed value winning over the default.
	Model string
	// Official marks vendor-blessed providers.
	Official bool
}

// Detect reverse-maps an environment snapshot to the provider it selects.
// Precedence is fixed: the Bedrock flag, then the Vertex flag, then a base
// URL matched against known providers, then the native default. Absence of
// every signal is the default case, not an error.
func Detect(env Environ) Info {
	baseURL := env[EnvBaseURL]
	model := env[EnvModel]

	var cfg Config
	switch {
	case env[EnvUseBedrock] != "":
		cfg, _ = Get("bedrock")
	case env[EnvUseVertex] != "":
		cfg, _ = Get("vertex")
	case baseURL != "":
		matched, ok := matchBaseURL(baseURL)
		if !ok {
			return Info{
				Name:        "custom",
				DisplayName: "Custom Provider",
				Description: fmt.Sprintf("Custom API at %s", baseURL),
				BaseURL:     baseURL,
				Model:       model,
			}
		}
		cfg = matched
	default:
		cfg, _ = Get("anthropic")
	}

	info := Info{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		BaseURL:     baseURL,
		Model:       model,
		Official:    cfg.Official,
	}
	if info.BaseURL == "" {
		info.BaseURL = cfg.BaseURL
	}
	if info.Model == "" {
		info.Model = cfg.DefaultModel
	}
	return info
}

// matchBaseURL scans registered providers, in registration order, for one
// whose default base URL is contained in the observed value.
func matchBaseURL(observed string) (Config, bool) {
	for _, cfg := range List(false) {
		if cfg.BaseURL != "" && strings.Contains(observed, cfg.BaseURL) {
			return cfg, true
		}
	}
	return Config{}, false
}
