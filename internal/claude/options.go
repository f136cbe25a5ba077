// Package claude wraps the Claude Code CLI as a streaming subprocess session.
// Options mirror the configuration surface the CLI accepts; the Client speaks
// the stream-json control protocol over the subprocess pipes and routes tool
// lifecycle callbacks through the audit pipeline.
package claude

import (
	"context"

	"github.com/cameroncode/cameroncode/internal/audit"
)

// PermissionFunc decides whether a tool call may proceed. The opaque context
// value carries host-session data such as suggestions from the CLI.
type PermissionFunc func(ctx context.Context, toolName string, toolInput map[string]any, callContext any) (audit.PermissionResult, error)

// HookFunc observes a tool lifecycle event and returns a continue/stop
// decision.
type HookFunc func(ctx context.Context, input audit.HookInput) (audit.HookOutput, error)

// Hook event names matching the CLI's hook configuration keys.
const (
	// HookPreToolUse fires immediately before a tool executes.
	HookPreToolUse = "PreToolUse"
	// HookPostToolUse fires after a tool completes.
	HookPostToolUse = "PostToolUse"
)

// HookMatcher binds hook callbacks to tools matching a pattern. The pattern
// "*" matches every tool.
type HookMatcher struct {
	// Matcher is the tool name pattern the hooks apply to.
	Matcher string
	// Hooks run in order for each matching event.
	Hooks []HookFunc
}

// MCPServerConfig describes one tool server the CLI should launch.
type MCPServerConfig struct {
	// Command is the executable to spawn.
	Command string `json:"command"`
	// Args are passed to the command.
	Args []string `json:"args,omitempty"`
	// Env sets extra environment variables for the server process.
	Env map[string]string `json:"env,omitempty"`
}

// Options is the full configuration handed to a session at connect time.
// Values are copied when a session starts; the resolver returns fresh Options
// rather than mutating its input.
type Options struct {
	// Model selects the model by CLI flag, independent of env selection.
	Model string
	// MaxTurns caps assistant/tool turns per query. Zero means no cap.
	MaxTurns int
	// AllowedTools restricts tool usage to the listed names.
	AllowedTools []string
	// PermissionMode configures the CLI's tool approval behavior.
	PermissionMode string
	// CWD is the working directory for the session subprocess.
	CWD string
	// Env overrides environment variables for the subprocess.
	Env map[string]string
	// ExtraArgs are appended verbatim to the CLI invocation.
	ExtraArgs []string
	// SettingSources limits which settings files the CLI loads.
	SettingSources []string
	// Hooks maps hook event names to matchers.
	Hooks map[string][]HookMatcher
	// MCPServers maps server names to launch configurations.
	MCPServers map[string]MCPServerConfig
	// CanUseTool is consulted before the CLI commits to running a tool.
	CanUseTool PermissionFunc
}

// clone returns a deep copy of the mutable collections so a session never
// shares state with the caller's Options value.
func (o Options) clone() Options {
	copied := o
	if o.AllowedTools != nil {
		copied.AllowedTools = append([]string(nil), o.AllowedTools...)
	}
	if o.ExtraArgs != nil {
		copied.ExtraArgs = append([]string(nil), o.ExtraArgs...)
	}
	if o.SettingSources != nil {
		copied.SettingSources = append([]string(nil), o.SettingSources...)
	}
	if o.Env != nil {
		env := make(map[string]string, len(o.Env))
		for key, value := range o.Env {
			env[key] = value
		}
		copied.Env = env
	}
	if o.Hooks != nil {
		hooks := make(map[string][]HookMatcher, len(o.Hooks))
		for event, matchers := range o.Hooks {
			hooks[event] = append([]HookMatcher(nil), matchers...)
		}
		copied.Hooks = hooks
	}
	if o.MCPServers != nil {
		servers := make(map[string]MCPServerConfig, len(o.MCPServers))
		for name, server := range o.MCPServers {
			servers[name] = server
		}
		copied.MCPServers = servers
	}
	return copied
}
