package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/corpusqa/internal/engine"
	"github.com/bull/corpusqa/internal/index"
	"github.com/bull/corpusqa/internal/retrieval"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server *mcp.Server
	idx    index.Index
}

// Config holds server dependencies.
type Config struct {
	Engine    *engine.Engine
	Retriever *retrieval.Retriever
	Index     index.Index
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "corpusqa-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a natural-language question from the indexed corpus. Compound questions are decomposed and answered step by step; the response includes the full reasoning trail with per-step confidence.",
	}, makeAskHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_passages",
		Description: "Semantically search the indexed corpus for relevant passages. Returns raw passages with similarity scores, no synthesis.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all indexed documents with their chunk counts.",
	}, makeListHandler(cfg.Index))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Get the current status of the vector index including entry counts, embedding dimension and similarity metric.",
	}, makeStatusHandler(cfg.Index))

	return &Server{
		server: server,
		idx:    cfg.Index,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
