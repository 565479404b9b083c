package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spoolhq/spool/internal/reader"
	"github.com/spoolhq/spool/internal/retrieval"
	"github.com/spoolhq/spool/internal/scratch"
)

// Server wraps the MCP server with its dependencies. All tool calls run on
// behalf of the configured tenant.
type Server struct {
	server    *mcp.Server
	retriever *retrieval.Service
	reader    *reader.Client
	scratch   *scratch.Index
	user      retrieval.User
}

// Config holds server dependencies. Scratch is optional; when nil the
// scratch tools are not registered.
type Config struct {
	Retriever *retrieval.Service
	Reader    *reader.Client
	Scratch   *scratch.Index
	User      retrieval.User
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "spool",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_content",
		Description: "Semantically search previously ingested content. Results can be narrowed by node type, url, note id, resource id, or collection id.",
	}, makeSearchHandler(cfg.Retriever, cfg.User))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_url",
		Description: "Fetch a url through the reader endpoint and index its content for search.",
	}, makeIngestURLHandler(cfg.Retriever, cfg.Reader, cfg.User))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_content",
		Description: "Index raw text content for search under a note id.",
	}, makeIngestContentHandler(cfg.Retriever, cfg.User))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_owner",
		Description: "Remove all indexed content belonging to a note or resource id.",
	}, makeDeleteOwnerHandler(cfg.Retriever, cfg.User))

	if cfg.Scratch != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "scratch_add",
			Description: "Add documents to the in-memory scratch index. Scratch content lives for the process lifetime only and is never persisted.",
		}, makeScratchAddHandler(cfg.Scratch))

		mcp.AddTool(server, &mcp.Tool{
			Name:        "scratch_search",
			Description: "Semantically search the in-memory scratch index, optionally requiring tag values.",
		}, makeScratchSearchHandler(cfg.Scratch))
	}

	return &Server{
		server:    server,
		retriever: cfg.Retriever,
		reader:    cfg.Reader,
		scratch:   cfg.Scratch,
		user:      cfg.User,
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
