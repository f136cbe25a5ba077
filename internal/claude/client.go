package claude

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cameroncode/cameroncode/internal/audit"
)

// EnvCLIPath overrides the claude binary location for the session subprocess.
const EnvCLIPath = "CAMERON_CLAUDE_CLI"

// Hook callback ids registered with the CLI during initialize. The CLI calls
// back with these ids; the gate fans out to the caller's own hooks.
const (
	preToolCallbackID  = "cameron_pre_tool"
	postToolCallbackID = "cameron_post_tool"
)

var (
	// ErrNotConnected is returned when an operation needs a live session.
	ErrNotConnected = errors.New("session not connected")
	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("session already connected")
)

// controlTimeout bounds how long the client waits for a control response.
const controlTimeout = 60 * time.Second

// CommandInfo describes one slash command reported by the CLI.
type CommandInfo struct {
	// Name is the command name without the leading slash.
	Name string
	// Description is the CLI-provided summary.
	Description string
}

// Client runs one Claude CLI session as a subprocess, speaking stream-json on
// its pipes. Tool permission checks and hook callbacks arriving as control
// requests are routed through the audit pipeline before a response is written
// back, so the CLI never runs a tool this layer has vetoed.
type Client struct {
	opts     Options
	pipeline *audit.Pipeline
	logger   zerolog.Logger
	cliPath  string

	writeMu sync.Mutex
	stdin   io.WriteCloser

	mu        sync.Mutex
	cmd       *exec.Cmd
	connected bool
	sessionID string
	info      map[string]any
	readErr   error

	pendingMu sync.Mutex
	pending   map[string]chan controlResponsePayload

	messages  chan Message
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient builds a session client for opts. The options value is copied;
// later caller mutations do not affect the session. Audit state is owned by
// the client and exposed through AuditLog.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	opts = opts.clone()
	cliPath := os.Getenv(EnvCLIPath)
	if cliPath == "" {
		cliPath = "claude"
	}
	client := &Client{
		opts:     opts,
		logger:   logger,
		cliPath:  cliPath,
		pending:  make(map[string]chan controlResponsePayload),
		messages: make(chan Message, 64),
	}
	client.pipeline = audit.NewPipeline(audit.NewLog(), optionsGate{opts: opts}, logger)
	return client
}

// AuditLog returns a copy of every tool lifecycle record observed so far.
func (c *Client) AuditLog() []audit.Record {
	return c.pipeline.Log().Snapshot()
}

// Connect launches the CLI subprocess and performs the initialize handshake,
// registering the pipeline's hook callbacks. The context bounds the handshake
// only; the session itself lives until Close.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}

	cmd := exec.Command(c.cliPath, c.buildArgs()...)
	if c.opts.CWD != "" {
		cmd.Dir = c.opts.CWD
	}
	cmd.Env = c.buildEnv()
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("start claude cli: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.connected = true
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	go c.readLoop(stdout)

	info, err := c.sendControlRequest(ctx, map[string]any{
		"subtype": "initialize",
		"hooks":   c.hookRegistration(),
	})
	if err != nil {
		_ = c.Close()
		return fmt.Errorf("initialize session: %w", err)
	}

	c.mu.Lock()
	c.info = info
	c.mu.Unlock()

	c.logger.Debug().Str("cli", c.cliPath).Msg("session connected")
	return nil
}

// buildArgs translates Options into the CLI flag surface.
func (c *Client) buildArgs() []string {
	args := []string{
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
		"--permission-prompt-tool", "stdio",
	}
	if c.opts.Model != "" {
		args = append(args, "--model", c.opts.Model)
	}
	if c.opts.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(c.opts.MaxTurns))
	}
	if len(c.opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(c.opts.AllowedTools, ","))
	}
	if c.opts.PermissionMode != "" {
		args = append(args, "--permission-mode", c.opts.PermissionMode)
	}
	if len(c.opts.SettingSources) > 0 {
		args = append(args, "--setting-sources", strings.Join(c.opts.SettingSources, ","))
	}
	if len(c.opts.MCPServers) > 0 {
		config, err := json.Marshal(map[string]any{"mcpServers": c.opts.MCPServers})
		if err == nil {
			args = append(args, "--mcp-config", string(config))
		}
	}
	return append(args, c.opts.ExtraArgs...)
}

// buildEnv layers the session's environment overrides over the inherited
// process environment.
func (c *Client) buildEnv() []string {
	env := os.Environ()
	for key, value := range c.opts.Env {
		env = append(env, key+"="+value)
	}
	return env
}

// hookRegistration builds the initialize hooks payload. The pipeline is
// registered for every tool; caller matchers are applied gate-side.
func (c *Client) hookRegistration() map[string]any {
	return map[string]any{
		HookPreToolUse: []any{map[string]any{
			"matcher":         "*",
			"hookCallbackIds": []string{preToolCallbackID},
		}},
		HookPostToolUse: []any{map[string]any{
			"matcher":         "*",
			"hookCallbackIds": []string{postToolCallbackID},
		}},
	}
}

// readLoop decodes stdout lines until the subprocess exits, dispatching
// control traffic and forwarding messages to the caller.
func (c *Client) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		envelope, err := decodeEnvelope(line)
		if err != nil {
			c.logger.Debug().Err(err).Msg("skipping undecodable stream line")
			continue
		}
		if envelope.SessionID != "" {
			c.mu.Lock()
			c.sessionID = envelope.SessionID
			c.mu.Unlock()
		}

		switch envelope.Type {
		case "control_request":
			go c.handleControlRequest(envelope)
		case "control_response":
			c.deliverControlResponse(envelope)
		case "control_cancel_request":
			// Cancellation of in-flight tool calls is the CLI's business.
		default:
			message, err := decodeMessage(envelope)
			if err != nil {
				c.logger.Debug().Err(err).Str("type", envelope.Type).Msg("dropping malformed message")
				continue
			}
			if message == nil {
				continue
			}
			if system, ok := message.(SystemMessage); ok && system.Subtype == "init" {
				c.mu.Lock()
				if c.info == nil {
					c.info = system.Data
				}
				c.mu.Unlock()
			}
			select {
			case c.messages <- message:
			case <-c.ctx.Done():
				return
			}
		}
	}

	c.mu.Lock()
	if err := scanner.Err(); err != nil {
		c.readErr = fmt.Errorf("read session stream: %w", err)
	}
	c.mu.Unlock()
	close(c.messages)
}

// handleControlRequest answers a CLI-initiated control request by driving
// the audit pipeline.
func (c *Client) handleControlRequest(envelope streamEnvelope) {
	response, err := c.dispatchControlRequest(c.ctx, envelope.Request)
	payload := controlResponsePayload{
		Subtype:   "success",
		RequestID: envelope.RequestID,
		Response:  response,
	}
	if err != nil {
		payload = controlResponsePayload{
			Subtype:   "error",
			RequestID: envelope.RequestID,
			Error:     err.Error(),
		}
	}
	if writeErr := c.writeLine(outgoingControlResponse{Type: "control_response", Response: payload}); writeErr != nil {
		c.logger.Debug().Err(writeErr).Msg("failed to answer control request")
	}
}

// dispatchControlRequest maps a control request subtype onto the pipeline.
func (c *Client) dispatchControlRequest(ctx context.Context, request map[string]any) (map[string]any, error) {
	subtype, _ := request["subtype"].(string)
	switch subtype {
	case "can_use_tool":
		toolName, _ := request["tool_name"].(string)
		toolInput, _ := request["input"].(map[string]any)
		result, err := c.pipeline.CheckPermission(ctx, toolName, toolInput, request["permission_suggestions"])
		if err != nil {
			return nil, err
		}
		if !result.Allow {
			return map[string]any{"behavior": "deny", "message": result.Message}, nil
		}
		return map[string]any{"behavior": "allow", "updatedInput": toolInput}, nil

	case "hook_callback":
		callbackID, _ := request["callback_id"].(string)
		hookInput, _ := request["input"].(map[string]any)
		toolUseID, _ := request["tool_use_id"].(string)
		return c.runHookCallback(ctx, callbackID, hookInput, toolUseID)

	default:
		return nil, fmt.Errorf("unsupported control request subtype: %s", subtype)
	}
}

// runHookCallback routes a registered hook callback through the pipeline.
func (c *Client) runHookCallback(ctx context.Context, callbackID string, payload map[string]any, toolUseID string) (map[string]any, error) {
	toolName, _ := payload["tool_name"].(string)
	input := audit.HookInput{
		ToolName:  toolName,
		ToolUseID: toolUseID,
		Context:   payload,
	}

	var (
		output audit.HookOutput
		err    error
	)
	switch callbackID {
	case preToolCallbackID:
		input.ToolInput, _ = payload["tool_input"].(map[string]any)
		output, err = c.pipeline.PreTool(ctx, input)
	case postToolCallbackID:
		input.ToolOutput = payload["tool_response"]
		if input.ToolOutput == nil {
			input.ToolOutput = payload["tool_output"]
		}
		output, err = c.pipeline.PostTool(ctx, input)
	default:
		return nil, fmt.Errorf("unknown hook callback id: %s", callbackID)
	}
	if err != nil {
		return nil, err
	}

	response := map[string]any{"continue": output.Continue}
	if output.StopReason != "" {
		response["stopReason"] = output.StopReason
	}
	if output.Output != nil {
		response["output"] = output.Output
	}
	return response, nil
}

// deliverControlResponse completes a pending client-initiated request.
func (c *Client) deliverControlResponse(envelope streamEnvelope) {
	var payload controlResponsePayload
	if len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, &payload); err != nil {
			c.logger.Debug().Err(err).Msg("dropping malformed control response")
			return
		}
	}
	c.pendingMu.Lock()
	waiter, ok := c.pending[payload.RequestID]
	if ok {
		delete(c.pending, payload.RequestID)
	}
	c.pendingMu.Unlock()
	if ok {
		waiter <- payload
	}
}

// sendControlRequest writes a control request and waits for its response.
func (c *Client) sendControlRequest(ctx context.Context, request map[string]any) (map[string]any, error) {
	if !c.isConnected() {
		return nil, ErrNotConnected
	}

	requestID := fmt.Sprintf("req_%s", uuid.NewString()[:8])
	waiter := make(chan controlResponsePayload, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = waiter
	c.pendingMu.Unlock()

	err := c.writeLine(outgoingControlRequest{
		Type:      "control_request",
		RequestID: requestID,
		Request:   request,
	})
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(controlTimeout)
	defer timer.Stop()
	select {
	case payload := <-waiter:
		if payload.Subtype == "error" {
			return nil, fmt.Errorf("control request failed: %s", payload.Error)
		}
		return payload.Response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrNotConnected
	case <-timer.C:
		return nil, fmt.Errorf("control request timed out: %v", request["subtype"])
	}
}

// Query sends a user prompt into the session.
func (c *Client) Query(prompt string) error {
	if !c.isConnected() {
		return ErrNotConnected
	}
	content, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	return c.writeLine(outgoingUserMessage{
		Type:      "user",
		Message:   messagePayload{Role: "user", Content: content},
		SessionID: sessionID,
	})
}

// ReceiveMessages exposes the full message stream. The channel closes when
// the session ends.
func (c *Client) ReceiveMessages() <-chan Message {
	return c.messages
}

// ReceiveResponse relays messages until (and including) the result that
// terminates the current query. The returned channel closes afterwards.
func (c *Client) ReceiveResponse(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case message, ok := <-c.messages:
				if !ok {
					return
				}
				select {
				case out <- message:
				case <-ctx.Done():
					return
				}
				if _, isResult := message.(ResultMessage); isResult {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Interrupt asks the CLI to cancel the in-flight turn.
func (c *Client) Interrupt(ctx context.Context) error {
	_, err := c.sendControlRequest(ctx, map[string]any{"subtype": "interrupt"})
	return err
}

// ServerInfo returns the initialize payload reported by the CLI, or nil
// before Connect completes.
func (c *Client) ServerInfo() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Commands lists the slash commands the CLI reported at startup.
func (c *Client) Commands() []CommandInfo {
	info := c.ServerInfo()
	if info == nil {
		return nil
	}
	raw, _ := info["commands"].([]any)
	commands := make([]CommandInfo, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		description, _ := entry["description"].(string)
		commands = append(commands, CommandInfo{Name: name, Description: description})
	}
	return commands
}

// Err reports the terminal stream error, if any, once ReceiveMessages has
// closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close shuts the session down: stdin is closed so the CLI can exit cleanly,
// with a kill escalation if it lingers.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cmd := c.cmd
		stdin := c.stdin
		c.connected = false
		c.mu.Unlock()

		if c.cancel != nil {
			c.cancel()
		}
		if stdin != nil {
			_ = stdin.Close()
		}
		if cmd == nil {
			return
		}

		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err = <-done:
		case <-time.After(5 * time.Second):
			_ = cmd.Process.Kill()
			err = <-done
		}
	})
	return err
}

// isConnected reports whether the subprocess handshake has started.
func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// writeLine marshals value and writes it as one NDJSON line.
func (c *Client) writeLine(value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode stream line: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.stdin == nil {
		return ErrNotConnected
	}
	if _, err := c.stdin.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("write stream line: %w", err)
	}
	return nil
}
