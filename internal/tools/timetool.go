package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// TimeTool handles the cameron_time MCP tool.
type TimeTool struct {
	now func() time.Time
}

// NewTimeTool creates a TimeTool reporting the real clock.
func NewTimeTool() *TimeTool {
	return &TimeTool{now: time.Now}
}

// Definition returns the MCP tool definition for cameron_time.
func (t *TimeTool) Definition() mcp.Tool {
	return mcp.NewTool("cameron_time",
		mcp.WithDescription("Get the current time in Cameron's timezone (CST)"),
	)
}

// Handle processes the cameron_time tool call.
func (t *TimeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := t.now().UTC()
	return mcp.NewToolResultText(fmt.Sprintf("Current UTC time: %s", now.Format(time.RFC3339Nano))), nil
}
