package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrExtraProvidersMissing is returned when the extra providers file does
// not exist. Callers treat this as "nothing to load".
var ErrExtraProvidersMissing = errors.New("extra providers file missing")

// ExtraProvidersPath returns the default location of the user's provider
// definitions file.
func ExtraProvidersPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".cameron", "providers.yaml"), nil
}

// extraProvidersFile is the YAML document shape for user-defined providers.
type extraProvidersFile struct {
	Providers []Config `yaml:"providers"`
}

// LoadExtraProviders reads user-defined provider descriptors from a YAML
// file. Entries are validated but not registered; pass them to RegisterExtra
// during startup. An empty path loads the default location.
func LoadExtraProviders(path string) ([]Config, error) {
	if path == "" {
		var err error
		path, err = ExtraProvidersPath()
		if err != nil {
			return nil, err
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrExtraProvidersMissing
		}
		return nil, fmt.Errorf("read extra providers: %w", err)
	}

	var file extraProvidersFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse extra providers: %w", err)
	}

	for i, cfg := range file.Providers {
		if cfg.Name == "" {
			return nil, fmt.Errorf("extra provider %d: name required", i)
		}
		if cfg.BaseURL == "" && len(cfg.EnvVars) == 0 {
			return nil, fmt.Errorf("extra provider %q: base_url or env_vars required", cfg.Name)
		}
		if file.Providers[i].DisplayName == "" {
			file.Providers[i].DisplayName = cfg.Name
		}
		// User-defined providers are usable but never vendor-blessed.
		file.Providers[i].Official = false
		file.Providers[i].Supported = true
	}
	return file.Providers, nil
}
