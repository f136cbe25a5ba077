package tools

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

func TestSearchMatchesKey(t *testing.T) {
	tool := NewSearchTool()
	result, err := tool.Handle(context.Background(), callToolRequest("cameron_search", map[string]any{
		"query": "coffee",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "oat milk lattes")
}

func TestSearchMatchesValueCaseInsensitive(t *testing.T) {
	tool := NewSearchTool()
	result, err := tool.Handle(context.Background(), callToolRequest("cameron_search", map[string]any{
		"query": "BLUE",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "favorite color is blue")
}

func TestSearchNoMatch(t *testing.T) {
	tool := NewSearchTool()
	result, err := tool.Handle(context.Background(), callToolRequest("cameron_search", map[string]any{
		"query": "quantum gravity",
	}))
	require.NoError(t, err)
	assert.Equal(t, "No results found for 'quantum gravity' in Cameron's knowledge base.", resultText(t, result))
}

func TestSearchRequiresQuery(t *testing.T) {
	tool := NewSearchTool()
	result, err := tool.Handle(context.Background(), callToolRequest("cameron_search", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestTimeReportsUTC(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.FixedZone("CST", -6*3600))
	tool := &TimeTool{now: func() time.Time { return fixed }}

	result, err := tool.Handle(context.Background(), callToolRequest("cameron_time", nil))
	require.NoError(t, err)
	assert.Equal(t, "Current UTC time: 2025-03-14T15:26:53Z", resultText(t, result))
}

func TestServerRegistersBothTools(t *testing.T) {
	s := NewServer()
	require.NotNil(t, s)

	names := []string{
		NewSearchTool().Definition().Name,
		NewTimeTool().Definition().Name,
	}
	assert.Equal(t, []string{"cameron_search", "cameron_time"}, names)
}
