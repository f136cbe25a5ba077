package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameroncode/cameroncode/internal/claude"
)

func TestApplyDeepseek(t *testing.T) {
	base := claude.Options{CWD: "/proj"}

	merged, err := ApplyNamed(base, "deepseek", ApplyOptions{APIKey: "sk-test"})
	require.NoError(t, err)

	assert.Equal(t, "https://api.deepseek.com/anthropic", merged.Env[EnvBaseURL])
	assert.Equal(t, "sk-test", merged.Env[EnvAuthToken])
	assert.Equal(t, "deepseek-chat", merged.Env[EnvModel])
	assert.Equal(t, "/proj", merged.CWD)
	// The input options keep their original environment.
	assert.Nil(t, base.Env)
}

func TestApplyUnknownProvider(t *testing.T) {
	_, err := ApplyNamed(claude.Options{}, "made-up-name", ApplyOptions{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestApplyOverridePrecedence(t *testing.T) {
	cfg := NewCustom("fixture", "https://fixture.example")
	cfg.EnvVars = map[string]string{"X": "1"}

	merged := Apply(claude.Options{}, cfg, ApplyOptions{
		Env: map[string]string{"X": "2"},
	})
	// Caller overrides always win over descriptor defaults.
	assert.Equal(t, "2", merged.Env["X"])
}

func TestApplyEnvOverridesWinOverModel(t *testing.T) {
	merged, err := ApplyNamed(claude.Options{}, "glm", ApplyOptions{
		Model: "glm-4.6",
		Env:   map[string]string{EnvModel: "glm-4.5-flash"},
	})
	require.NoError(t, err)
	// Env overrides are applied last, so they beat the model override too.
	assert.Equal(t, "glm-4.5-flash", merged.Env[EnvModel])
}

func TestApplyIdempotent(t *testing.T) {
	base := claude.Options{Env: map[string]string{"KEEP": "yes"}}
	opts := ApplyOptions{APIKey: "sk-test", Env: map[string]string{"EXTRA": "1"}}

	first, err := ApplyNamed(base, "glm", opts)
	require.NoError(t, err)
	second, err := ApplyNamed(base, "glm", opts)
	require.NoError(t, err)

	assert.Equal(t, first.Env, second.Env)
	assert.Equal(t, "yes", first.Env["KEEP"])
}

func TestApplyEmptyEnvNormalizesToNil(t *testing.T) {
	// Anthropic sets nothing; with no overrides the mapping stays unset.
	merged, err := ApplyNamed(claude.Options{}, "anthropic", ApplyOptions{})
	require.NoError(t, err)
	assert.Nil(t, merged.Env)
}

func TestApplyModelFallsBackToDefault(t *testing.T) {
	merged, err := ApplyNamed(claude.Options{}, "deepseek-reasoner", ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", merged.Env[EnvModel])

	merged, err = ApplyNamed(claude.Options{}, "deepseek-reasoner", ApplyOptions{Model: "deepseek-chat"})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", merged.Env[EnvModel])
}

func TestNewOptionsForProvider(t *testing.T) {
	opts, err := NewOptionsForProvider("deepseek", SessionRequest{
		APIKey: "sk-test",
		CWD:    "/proj",
	})
	require.NoError(t, err)

	assert.Equal(t, "/proj", opts.CWD)
	assert.Equal(t, []string{"project"}, opts.SettingSources, "default setting sources")
	assert.Equal(t, "sk-test", opts.Env[EnvAuthToken])
}

func TestNewOptionsForProviderKeepsExplicitSources(t *testing.T) {
	opts, err := NewOptionsForProvider("glm", SessionRequest{
		SettingSources: []string{"user", "project"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "project"}, opts.SettingSources)
}

func TestNewOptionsForProviderErrors(t *testing.T) {
	_, err := NewOptionsForProvider("bedrock", SessionRequest{})
	require.ErrorIs(t, err, ErrProviderUnsupported)
	assert.NotErrorIs(t, err, ErrUnknownProvider)

	_, err = NewOptionsForProvider("made-up-name", SessionRequest{})
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.NotErrorIs(t, err, ErrProviderUnsupported)
}

func TestEnvExample(t *testing.T) {
	example, err := EnvExample("deepseek")
	require.NoError(t, err)
	assert.Contains(t, example, `export ANTHROPIC_BASE_URL="https://api.deepseek.com/anthropic"`)
	assert.Contains(t, example, `export ANTHROPIC_MODEL="deepseek-chat"`)
	assert.Contains(t, example, "ANTHROPIC_AUTH_TOKEN")

	example, err = EnvExample("bedrock")
	require.NoError(t, err)
	assert.Contains(t, example, `export CLAUDE_CODE_USE_BEDROCK="1"`)

	_, err = EnvExample("made-up-name")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
