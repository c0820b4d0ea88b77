package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/stackdesk/zendesk-mcp/pkg/zendesk"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server exposes a Zendesk client over MCP: tools for tickets, search,
// analytics, SLA, CSAT, and the knowledge base, plus prompts and the
// knowledge base resource.
type Server struct {
	mcp    *server.MCPServer
	client *zendesk.Client
	log    *zap.Logger
}

// New builds the MCP server and registers every tool, prompt, and
// resource.
func New(client *zendesk.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		mcp: server.NewMCPServer("Zendesk MCP", Version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(true, true),
			server.WithPromptCapabilities(true),
			server.WithRecovery(),
		),
		client: client,
		log:    log,
	}
	s.registerTicketTools()
	s.registerSearchTools()
	s.registerAnalyticsTools()
	s.registerKBTools()
	s.registerRelationshipTools()
	s.registerSLATools()
	s.registerCSATTools()
	s.registerPrompts()
	s.registerResources()
	return s
}

// ServeStdio runs the server over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// ServeHTTP runs the server over the streamable HTTP transport.
func (s *Server) ServeHTTP(addr string) error {
	s.log.Info("starting streamable HTTP server", zap.String("addr", addr))
	return server.NewStreamableHTTPServer(s.mcp).Start(addr)
}

// MCPServer exposes the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// jsonResult renders a tool result as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// toolError maps a client error onto a tool error result. Validation
// problems and API failures both come back as tool errors so the
// calling model can react to them.
func (s *Server) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	s.log.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError(err.Error()), nil
}

// optInt64 reads an optional integer argument, nil when absent.
func optInt64(req mcp.CallToolRequest, key string) *int64 {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		id := int64(n)
		return &id
	case int:
		id := int64(n)
		return &id
	default:
		return nil
	}
}

// optInt reads an optional integer argument, nil when absent.
func optInt(req mcp.CallToolRequest, key string) *int {
	if id := optInt64(req, key); id != nil {
		n := int(*id)
		return &n
	}
	return nil
}
