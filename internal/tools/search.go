package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// knowledge is the simulated private knowledge base backing cameron_search.
// Entries are matched by keyword against both the key and the value.
var knowledge = []struct {
	key   string
	value string
}{
	{"favorite_color", "Cameron's favorite color is blue."},
	{"project", "Cameron is working on extending Claude Code."},
	{"coffee", "Cameron prefers oat milk lattes."},
}

// SearchTool handles the cameron_search MCP tool.
type SearchTool struct{}

// NewSearchTool creates a SearchTool.
func NewSearchTool() *SearchTool {
	return &SearchTool{}
}

// Definition returns the MCP tool definition for cameron_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("cameron_search",
		mcp.WithDescription("Search Cameron's private knowledge base for information"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
	)
}

// Handle processes the cameron_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	needle := strings.ToLower(query)
	var results []string
	for _, entry := range knowledge {
		if strings.Contains(strings.ToLower(entry.key), needle) ||
			strings.Contains(strings.ToLower(entry.value), needle) {
			results = append(results, entry.value)
		}
	}

	if len(results) == 0 {
		results = []string{fmt.Sprintf("No results found for '%s' in Cameron's knowledge base.", query)}
	}

	return mcp.NewToolResultText(strings.Join(results, "\n")), nil
}
