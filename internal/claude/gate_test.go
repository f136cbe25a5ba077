package claude

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameroncode/cameroncode/internal/audit"
)

func TestOptionsGateDefaults(t *testing.T) {
	gate := optionsGate{opts: Options{}}
	ctx := context.Background()

	result, err := gate.CheckPermission(ctx, "Bash", map[string]any{"command": "ls"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Allow)

	output, err := gate.BeforeTool(ctx, audit.HookInput{ToolName: "Bash"})
	require.NoError(t, err)
	assert.True(t, output.Continue)
}

func TestOptionsGateDelegatesPermission(t *testing.T) {
	opts := Options{
		CanUseTool: func(_ context.Context, toolName string, _ map[string]any, _ any) (audit.PermissionResult, error) {
			if toolName == "WebFetch" {
				return audit.Deny("offline mode"), nil
			}
			return audit.Allow(), nil
		},
	}
	gate := optionsGate{opts: opts}

	result, err := gate.CheckPermission(context.Background(), "WebFetch", nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Allow)
	assert.Equal(t, "offline mode", result.Message)
}

func TestOptionsGateHookMatchers(t *testing.T) {
	var seen []string
	record := func(label string, decision audit.HookOutput) HookFunc {
		return func(context.Context, audit.HookInput) (audit.HookOutput, error) {
			seen = append(seen, label)
			return decision, nil
		}
	}

	opts := Options{
		Hooks: map[string][]HookMatcher{
			HookPreToolUse: {
				{Matcher: "*", Hooks: []HookFunc{record("wildcard", audit.Continue())}},
				{Matcher: "Bash", Hooks: []HookFunc{record("bash-only", audit.Continue())}},
				{Matcher: "Edit", Hooks: []HookFunc{record("edit-only", audit.Continue())}},
			},
		},
	}
	gate := optionsGate{opts: opts}

	output, err := gate.BeforeTool(context.Background(), audit.HookInput{ToolName: "Bash"})
	require.NoError(t, err)
	assert.True(t, output.Continue)
	assert.Equal(t, []string{"wildcard", "bash-only"}, seen)
}

func TestOptionsGateStopWinsAndShortCircuits(t *testing.T) {
	calls := 0
	opts := Options{
		Hooks: map[string][]HookMatcher{
			HookPostToolUse: {
				{Matcher: "*", Hooks: []HookFunc{
					func(context.Context, audit.HookInput) (audit.HookOutput, error) {
						return audit.HookOutput{StopReason: "enough"}, nil
					},
					func(context.Context, audit.HookInput) (audit.HookOutput, error) {
						calls++
						return audit.Continue(), nil
					},
				}},
			},
		},
	}
	gate := optionsGate{opts: opts}

	output, err := gate.AfterTool(context.Background(), audit.HookInput{ToolName: "Write"})
	require.NoError(t, err)
	assert.False(t, output.Continue)
	assert.Equal(t, "enough", output.StopReason)
	assert.Zero(t, calls, "hooks after a stop decision must not run")
}

func TestOptionsGateHookError(t *testing.T) {
	opts := Options{
		Hooks: map[string][]HookMatcher{
			HookPreToolUse: {
				{Matcher: "*", Hooks: []HookFunc{
					func(context.Context, audit.HookInput) (audit.HookOutput, error) {
						return audit.HookOutput{}, errors.New("hook exploded")
					},
				}},
			},
		},
	}
	gate := optionsGate{opts: opts}

	_, err := gate.BeforeTool(context.Background(), audit.HookInput{ToolName: "Bash"})
	assert.Error(t, err)
}

func TestOptionsCloneIsIndependent(t *testing.T) {
	original := Options{
		AllowedTools:   []string{"Bash"},
		Env:            map[string]string{"A": "1"},
		SettingSources: []string{"project"},
		Hooks: map[string][]HookMatcher{
			HookPreToolUse: {{Matcher: "*"}},
		},
		MCPServers: map[string]MCPServerConfig{
			"cameron": {Command: "cameron", Args: []string{"mcp-serve"}},
		},
	}

	copied := original.clone()
	copied.AllowedTools[0] = "Edit"
	copied.Env["A"] = "2"
	copied.Hooks[HookPostToolUse] = nil
	copied.MCPServers["other"] = MCPServerConfig{Command: "other"}

	assert.Equal(t, "Bash", original.AllowedTools[0])
	assert.Equal(t, "1", original.Env["A"])
	assert.NotContains(t, original.Hooks, HookPostToolUse)
	assert.NotContains(t, original.MCPServers, "other")
}
