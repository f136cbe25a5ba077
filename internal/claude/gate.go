package claude

import (
	"context"

	"github.com/cameroncode/cameroncode/internal/audit"
)

// optionsGate adapts the callbacks registered on Options to the audit gate
// interface. Absent callbacks fall through to allow/continue, so the pipeline
// never needs to know whether the caller registered anything.
type optionsGate struct {
	opts Options
}

func (g optionsGate) CheckPermission(ctx context.Context, toolName string, toolInput map[string]any, callContext any) (audit.PermissionResult, error) {
	if g.opts.CanUseTool == nil {
		return audit.Allow(), nil
	}
	return g.opts.CanUseTool(ctx, toolName, toolInput, callContext)
}

func (g optionsGate) BeforeTool(ctx context.Context, input audit.HookInput) (audit.HookOutput, error) {
	return g.runHooks(ctx, HookPreToolUse, input)
}

func (g optionsGate) AfterTool(ctx context.Context, input audit.HookInput) (audit.HookOutput, error) {
	return g.runHooks(ctx, HookPostToolUse, input)
}

// runHooks executes every registered hook whose matcher covers the tool, in
// registration order. The first stop decision wins; otherwise the last
// output override is carried forward.
func (g optionsGate) runHooks(ctx context.Context, event string, input audit.HookInput) (audit.HookOutput, error) {
	result := audit.Continue()
	for _, matcher := range g.opts.Hooks[event] {
		if !matcherCovers(matcher.Matcher, input.ToolName) {
			continue
		}
		for _, hook := range matcher.Hooks {
			output, err := hook(ctx, input)
			if err != nil {
				return audit.HookOutput{}, err
			}
			if !output.Continue {
				return output, nil
			}
			if output.Output != nil {
				result.Output = output.Output
			}
		}
	}
	return result, nil
}

// matcherCovers reports whether a hook matcher applies to a tool name.
// An empty matcher or "*" covers everything; anything else is an exact match.
func matcherCovers(matcher, toolName string) bool {
	return matcher == "" || matcher == "*" || matcher == toolName
}
