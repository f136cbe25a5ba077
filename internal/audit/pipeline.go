package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// dangerousBashPatterns short-circuit a Bash permission check to a denial
// before any caller-supplied gate is consulted.
var dangerousBashPatterns = []string{
	"rm -rf /",
	":(){ :|:& };:",
	"mkfs",
	"> /dev/sda",
}

// Pipeline intercepts tool execution for one session. Every phase appends
// its record before delegating to the gate, so the log reflects the attempt
// even when the gate rejects it.
type Pipeline struct {
	log    *Log
	gate   Gate
	logger zerolog.Logger
}

// NewPipeline builds a pipeline writing to log. A nil gate defaults to
// NopGate so callers never need to branch on its presence.
func NewPipeline(log *Log, gate Gate, logger zerolog.Logger) *Pipeline {
	if log == nil {
		log = NewLog()
	}
	if gate == nil {
		gate = NopGate{}
	}
	return &Pipeline{log: log, gate: gate, logger: logger}
}

// Log exposes the pipeline's audit log.
func (p *Pipeline) Log() *Log {
	return p.log
}

// CheckPermission decides whether toolName may run with toolInput. Dangerous
// Bash commands are denied outright; otherwise the gate decides.
func (p *Pipeline) CheckPermission(ctx context.Context, toolName string, toolInput map[string]any, callContext any) (PermissionResult, error) {
	// The record goes in before any decision is made so the log reflects
	// every check, including ones the deny-list rejects.
	p.log.Append(Record{
		Event: EventPermissionCheck,
		Tool:  toolName,
		Input: toolInput,
	})

	if toolName == "Bash" {
		command, _ := toolInput["command"].(string)
		for _, pattern := range dangerousBashPatterns {
			if strings.Contains(command, pattern) {
				p.logger.Warn().
					Str("tool", toolName).
					Str("pattern", pattern).
					Msg("blocked dangerous command")
				return Deny(fmt.Sprintf("blocked dangerous command: %s", pattern)), nil
			}
		}
	}

	result, err := p.gate.CheckPermission(ctx, toolName, toolInput, callContext)
	if err != nil {
		return PermissionResult{}, err
	}
	if !result.Allow {
		p.logger.Info().
			Str("tool", toolName).
			Str("message", result.Message).
			Msg("permission denied by gate")
	}
	return result, nil
}

// PreTool records an imminent tool execution and asks the gate whether to
// continue.
func (p *Pipeline) PreTool(ctx context.Context, input HookInput) (HookOutput, error) {
	p.log.Append(Record{
		Event:     EventPreTool,
		Tool:      input.ToolName,
		ToolUseID: input.ToolUseID,
		Input:     input.ToolInput,
	})

	output, err := p.gate.BeforeTool(ctx, input)
	if err != nil {
		return HookOutput{}, err
	}
	if !output.Continue {
		p.logger.Info().
			Str("tool", input.ToolName).
			Str("tool_use_id", input.ToolUseID).
			Str("reason", output.StopReason).
			Msg("pre-tool hook stopped execution")
	}
	return output, nil
}

// PostTool records a completed tool execution and lets the gate inspect the
// output.
func (p *Pipeline) PostTool(ctx context.Context, input HookInput) (HookOutput, error) {
	p.log.Append(Record{
		Event:     EventPostTool,
		Tool:      input.ToolName,
		ToolUseID: input.ToolUseID,
		Output:    input.ToolOutput,
	})

	output, err := p.gate.AfterTool(ctx, input)
	if err != nil {
		return HookOutput{}, err
	}
	return output, nil
}
