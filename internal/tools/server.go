// Package tools implements Cameron's MCP tool server.
//
// The server exposes two tools over stdio: cameron_search, a keyword
// lookup into a small personal knowledge base, and cameron_time, which
// reports the current UTC time. The main binary spawns it as an MCP
// subprocess so the tools become available inside agent sessions.
package tools

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer creates the MCP server with both tools registered.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"cameron",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	searchTool := NewSearchTool()
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	timeTool := NewTimeTool()
	s.AddTool(timeTool.Definition(), timeTool.Handle)

	return s
}

// ServeStdio runs the server over stdin/stdout until EOF.
func ServeStdio() error {
	return server.ServeStdio(NewServer())
}
