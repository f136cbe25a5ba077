package provider

import (
	"fmt"
	"sort"
	"strings"
)

// EnvExample renders shell export lines that configure the named provider
// manually, for users who want the environment set up outside this tool.
func EnvExample(name string) (string, error) {
	cfg, ok := Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s configuration\n", cfg.DisplayName)
	if cfg.BaseURL != "" {
		fmt.Fprintf(&b, "export %s=%q\n", EnvBaseURL, cfg.BaseURL)
	}
	fmt.Fprintf(&b, "export %s=%q\n", EnvAuthToken, "your-api-key-here")
	if cfg.DefaultModel != "" {
		fmt.Fprintf(&b, "export %s=%q\n", EnvModel, cfg.DefaultModel)
	}
	for _, key := range sortedKeys(cfg.EnvVars) {
		fmt.Fprintf(&b, "export %s=%q\n", key, cfg.EnvVars[key])
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// sortedKeys returns map keys in a stable order for deterministic output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
