package claude

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameroncode/cameroncode/internal/audit"
)

func TestBuildArgs(t *testing.T) {
	client := NewClient(Options{
		Model:          "deepseek-chat",
		MaxTurns:       20,
		AllowedTools:   []string{"Read", "Bash"},
		PermissionMode: "acceptEdits",
		SettingSources: []string{"user", "project"},
		ExtraArgs:      []string{"--fallback-model", "haiku"},
		MCPServers: map[string]MCPServerConfig{
			"cameron": {Command: "cameron", Args: []string{"mcp-serve"}},
		},
	}, zerolog.Nop())

	args := client.buildArgs()

	assert.Contains(t, args, "--output-format")
	assert.Contains(t, args, "--permission-prompt-tool")
	assertFlag(t, args, "--model", "deepseek-chat")
	assertFlag(t, args, "--max-turns", "20")
	assertFlag(t, args, "--allowedTools", "Read,Bash")
	assertFlag(t, args, "--permission-mode", "acceptEdits")
	assertFlag(t, args, "--setting-sources", "user,project")
	assert.Equal(t, "haiku", args[len(args)-1], "extra args go last")

	var mcpConfig string
	for i, arg := range args {
		if arg == "--mcp-config" {
			mcpConfig = args[i+1]
		}
	}
	require.NotEmpty(t, mcpConfig)
	var decoded map[string]map[string]MCPServerConfig
	require.NoError(t, json.Unmarshal([]byte(mcpConfig), &decoded))
	assert.Equal(t, "cameron", decoded["mcpServers"]["cameron"].Command)
}

func assertFlag(t *testing.T, args []string, flag, want string) {
	t.Helper()
	for i, arg := range args {
		if arg == flag {
			require.Greater(t, len(args), i+1)
			assert.Equal(t, want, args[i+1])
			return
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
}

func TestDispatchCanUseTool(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	ctx := context.Background()

	response, err := client.dispatchControlRequest(ctx, map[string]any{
		"subtype":   "can_use_tool",
		"tool_name": "Read",
		"input":     map[string]any{"file_path": "main.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "allow", response["behavior"])

	response, err = client.dispatchControlRequest(ctx, map[string]any{
		"subtype":   "can_use_tool",
		"tool_name": "Bash",
		"input":     map[string]any{"command": "rm -rf /"},
	})
	require.NoError(t, err)
	assert.Equal(t, "deny", response["behavior"])
	assert.Contains(t, response["message"], "rm -rf /")

	records := client.AuditLog()
	require.Len(t, records, 2)
	assert.Equal(t, audit.EventPermissionCheck, records[0].Event)
	assert.Equal(t, audit.EventPermissionCheck, records[1].Event)
	assert.Equal(t, "Bash", records[1].Tool)
}

func TestDispatchHookCallbacks(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	ctx := context.Background()

	response, err := client.dispatchControlRequest(ctx, map[string]any{
		"subtype":     "hook_callback",
		"callback_id": preToolCallbackID,
		"tool_use_id": "toolu_7",
		"input": map[string]any{
			"tool_name":  "Bash",
			"tool_input": map[string]any{"command": "ls"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, true, response["continue"])

	response, err = client.dispatchControlRequest(ctx, map[string]any{
		"subtype":     "hook_callback",
		"callback_id": postToolCallbackID,
		"tool_use_id": "toolu_7",
		"input": map[string]any{
			"tool_name":     "Bash",
			"tool_response": "files",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, true, response["continue"])

	records := client.AuditLog()
	require.Len(t, records, 2)
	assert.Equal(t, audit.EventPreTool, records[0].Event)
	assert.Equal(t, "toolu_7", records[0].ToolUseID)
	assert.Equal(t, audit.EventPostTool, records[1].Event)
	assert.Equal(t, "files", records[1].Output)
}

func TestDispatchUnknownSubtype(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	_, err := client.dispatchControlRequest(context.Background(), map[string]any{"subtype": "set_mood"})
	assert.Error(t, err)
}

func TestCommandsParsing(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	client.info = map[string]any{
		"commands": []any{
			map[string]any{"name": "compact", "description": "Compact the conversation"},
			map[string]any{"name": "review"},
			map[string]any{"description": "nameless, skipped"},
		},
	}

	commands := client.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, "compact", commands[0].Name)
	assert.Equal(t, "Compact the conversation", commands[0].Description)
	assert.Equal(t, "review", commands[1].Name)
}

func TestQueryBeforeConnect(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	assert.ErrorIs(t, client.Query("hi"), ErrNotConnected)
	assert.ErrorIs(t, client.Interrupt(context.Background()), ErrNotConnected)
}

// TestSessionAgainstFakeCLI drives a full session against a helper process
// standing in for the claude binary.
func TestSessionAgainstFakeCLI(t *testing.T) {
	client := NewClient(Options{MaxTurns: 5}, zerolog.Nop())
	client.cliPath = fakeCLIPath(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	// The initialize response advertises slash commands.
	commands := client.Commands()
	require.NotEmpty(t, commands)
	assert.Equal(t, "compact", commands[0].Name)

	require.NoError(t, client.Query("hello"))

	var (
		sawAssistant bool
		result       ResultMessage
	)
	for message := range client.ReceiveResponse(ctx) {
		switch typed := message.(type) {
		case AssistantMessage:
			sawAssistant = true
		case ResultMessage:
			result = typed
		}
	}
	assert.True(t, sawAssistant)
	assert.Equal(t, "success", result.Subtype)
	assert.InDelta(t, 0.01, result.TotalCostUSD, 1e-9)

	// The fake CLI asked permission for a dangerous Bash command right
	// after initialize; the pipeline must have denied it and logged it.
	// The check runs on its own goroutine, so poll briefly.
	require.Eventually(t, func() bool {
		return len(client.AuditLog()) > 0
	}, 5*time.Second, 10*time.Millisecond)
	records := client.AuditLog()
	assert.Equal(t, audit.EventPermissionCheck, records[0].Event)
	assert.Equal(t, "Bash", records[0].Tool)
}

// fakeCLIPath writes a wrapper script that re-execs the test binary as the
// fake claude CLI helper.
func fakeCLIPath(t *testing.T) string {
	t.Helper()
	executable, err := os.Executable()
	require.NoError(t, err)

	script := fmt.Sprintf("#!/bin/sh\nGO_WANT_HELPER_PROCESS=1 exec %q -test.run=TestHelperProcess -- \"$@\"\n", executable)
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// TestHelperProcess impersonates the claude CLI for TestSessionAgainstFakeCLI.
// It is skipped during normal test runs.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		t.Skip("helper process")
	}

	emit := func(value any) {
		encoded, err := json.Marshal(value)
		if err != nil {
			os.Exit(1)
		}
		os.Stdout.Write(append(encoded, '\n'))
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		switch line["type"] {
		case "control_request":
			request, _ := line["request"].(map[string]any)
			if request["subtype"] == "initialize" {
				emit(map[string]any{
					"type": "control_response",
					"response": map[string]any{
						"subtype":    "success",
						"request_id": line["request_id"],
						"response": map[string]any{
							"commands": []any{
								map[string]any{"name": "compact", "description": "Compact the conversation"},
							},
						},
					},
				})
				// Probe the permission path with a dangerous command.
				emit(map[string]any{
					"type":       "control_request",
					"request_id": "srv_1",
					"request": map[string]any{
						"subtype":   "can_use_tool",
						"tool_name": "Bash",
						"input":     map[string]any{"command": "rm -rf /"},
					},
				})
			}
		case "user":
			emit(map[string]any{
				"type":       "system",
				"subtype":    "init",
				"session_id": "sess_fake",
				"model":      "claude-sonnet-4",
			})
			emit(map[string]any{
				"type":       "assistant",
				"session_id": "sess_fake",
				"message": map[string]any{
					"role":    "assistant",
					"content": []any{map[string]any{"type": "text", "text": "hello from the fake CLI"}},
				},
			})
			emit(map[string]any{
				"type":           "result",
				"subtype":        "success",
				"session_id":     "sess_fake",
				"num_turns":      1,
				"total_cost_usd": 0.01,
				"result":         "hello from the fake CLI",
			})
		}
	}
	os.Exit(0)
}
