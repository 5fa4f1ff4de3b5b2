// Package mcpfront assembles the cliwire MCP server: tool registration
// plus stdio and HTTP transport wiring built on the official MCP Go SDK.
// Unlike the REST front, which resolves everything from the incoming
// request, this front hands the SDK a single long-lived *mcp.Server backed
// by one mcpstate.State per process.
package mcpfront

import (
	"net/http"

	"github.com/howard-nolan/cliwire/internal/mcpstate"
	"github.com/howard-nolan/cliwire/internal/mcptools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "cliwire-mcp"

// NewServer builds an MCP server with every cliwire tool registered
// against state.
func NewServer(state *mcpstate.State, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcptools.Register(server, state)
	return server
}

// StdioTransport is the transport used to serve MCP over stdin/stdout —
// the default transport editors and CLI wrappers expect.
func StdioTransport() *mcp.StdioTransport {
	return &mcp.StdioTransport{}
}

// HTTPHandler returns an http.Handler serving MCP's Streamable HTTP
// transport at a single endpoint, always dispatching to server.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
