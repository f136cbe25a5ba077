// Package audit records every tool invocation observed during a session and
// decides whether a requested tool call may proceed. The session client calls
// into the pipeline at three points: the permission check before the CLI
// commits to running a tool, the pre-execution hook, and the post-execution
// hook. Records are kept in an instance-owned append-only log.
package audit

import (
	"context"
	"sync"
)

// Event kinds recorded in the log.
const (
	// EventPermissionCheck marks a permission decision record.
	EventPermissionCheck = "permission_check"
	// EventPreTool marks a record appended before a tool runs.
	EventPreTool = "pre_tool"
	// EventPostTool marks a record appended after a tool completes.
	EventPostTool = "post_tool"
)

// Record is one observed tool lifecycle event.
type Record struct {
	// Event is one of the Event* constants.
	Event string `json:"event"`
	// Tool is the tool name the event concerns.
	Tool string `json:"tool"`
	// ToolUseID correlates pre and post records for one invocation.
	ToolUseID string `json:"tool_use_id,omitempty"`
	// Input holds the tool input for permission_check and pre_tool records.
	Input map[string]any `json:"input,omitempty"`
	// Output holds the tool output for post_tool records.
	Output any `json:"output,omitempty"`
}

// Log is an append-only record of tool activity. Appends are serialized so
// the host session may deliver hook callbacks for distinct tool calls
// concurrently. The zero value is ready to use.
type Log struct {
	mu      sync.Mutex
	records []Record
}

// NewLog returns an empty audit log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a record to the end of the log.
func (l *Log) Append(record Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Snapshot returns a copy of the log. Mutating the returned slice does not
// affect the live log.
func (l *Log) Snapshot() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Len reports the number of records appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// PermissionResult is the outcome of a permission check.
type PermissionResult struct {
	// Allow reports whether the tool call may proceed.
	Allow bool
	// Message explains a denial to the model and the user.
	Message string
}

// Allow returns an allowing permission result.
func Allow() PermissionResult {
	return PermissionResult{Allow: true}
}

// Deny returns a denying permission result with an explanatory message.
func Deny(message string) PermissionResult {
	return PermissionResult{Message: message}
}

// HookInput is the payload delivered to pre and post tool hooks.
type HookInput struct {
	// ToolName identifies the tool being run.
	ToolName string
	// ToolUseID correlates the pre and post events of one invocation.
	ToolUseID string
	// ToolInput carries the tool arguments (pre hook).
	ToolInput map[string]any
	// ToolOutput carries the tool result payload (post hook).
	ToolOutput any
	// Context is opaque host-session context passed through to the gate.
	Context any
}

// HookOutput is the decision returned by a hook.
type HookOutput struct {
	// Continue reports whether execution should proceed.
	Continue bool
	// StopReason explains a stop when Continue is false.
	StopReason string
	// Output optionally overrides the tool output (post hook).
	Output any
}

// Continue returns a hook output that lets execution proceed.
func Continue() HookOutput {
	return HookOutput{Continue: true}
}

// Gate is the caller-supplied capability consulted at each pipeline phase.
// Implementations may suspend; the pipeline passes its context through.
type Gate interface {
	// CheckPermission decides whether a tool call may run at all. The
	// callContext value is opaque host-session data passed through verbatim.
	CheckPermission(ctx context.Context, toolName string, toolInput map[string]any, callContext any) (PermissionResult, error)
	// BeforeTool fires immediately before the tool executes.
	BeforeTool(ctx context.Context, input HookInput) (HookOutput, error)
	// AfterTool fires after the tool completes.
	AfterTool(ctx context.Context, input HookInput) (HookOutput, error)
}

// NopGate allows every tool call and continues through every hook.
type NopGate struct{}

// CheckPermission allows the call.
func (NopGate) CheckPermission(context.Context, string, map[string]any, any) (PermissionResult, error) {
	return Allow(), nil
}

// BeforeTool continues execution.
func (NopGate) BeforeTool(context.Context, HookInput) (HookOutput, error) {
	return Continue(), nil
}

// AfterTool continues execution.
func (NopGate) AfterTool(context.Context, HookInput) (HookOutput, error) {
	return Continue(), nil
}
