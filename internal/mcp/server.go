package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/promptgenie/internal/logging"
	"github.com/ziadkadry99/promptgenie/internal/prompt"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Generator is the prompt generation service exposed as MCP tools.
type Generator interface {
	AnalyzeQuery(ctx context.Context, query string) ([]prompt.FollowUpQuestion, error)
	GenerateFinalPrompt(ctx context.Context, req prompt.FinalPromptRequest) (*prompt.FinalPrompt, error)
}

// Server wraps an MCP server that exposes the prompt generation tools.
type Server struct {
	gen    Generator
	logger *zap.Logger
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server backed by gen.
func NewServer(gen Generator, logger *zap.Logger) *Server {
	s := &Server{
		gen:    gen,
		logger: logging.OrNop(logger),
	}

	s.mcp = server.NewMCPServer(
		"promptgenie",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(analyzeQueryTool, s.handleAnalyzeQuery)
	s.mcp.AddTool(generateFinalPromptTool, s.handleGenerateFinalPrompt)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
