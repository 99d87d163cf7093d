// Package mcp exposes the engine's memory toolset over the Model Context
// Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/glimpsehq/glimpse-engine/pkg/mcp/tools"
)

// serverName identifies the engine to MCP clients during the handshake.
const serverName = "glimpse-engine"

// Server is the engine's MCP surface: an MCPServer carrying the memory
// toolset, served over streamable HTTP.
type Server struct {
	mcp *server.MCPServer
}

// NewServer builds the MCP server and registers the memory tools on it.
func NewServer(version string, deps *tools.MemoryToolDeps) *Server {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)
	tools.RegisterMemoryTools(s, deps)
	return &Server{mcp: s}
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Handler returns the streamable HTTP transport for this server. The HTTP
// mux handles routing to /mcp, so no endpoint path is configured here. The
// transport is stateless; each request carries everything it needs.
func (s *Server) Handler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
