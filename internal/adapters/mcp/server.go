// Package mcpadapter exposes corpus search and grounded answering as MCP tools.
package mcpadapter

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
)

const (
	ServerName    = "nebras"
	ServerVersion = "0.1.0"

	defaultTopK = 5
	maxTopK     = 50
)

type Services struct {
	Query     ports.DocumentQueryService
	Documents ports.DocumentReader
	Logger    *slog.Logger
}

// NewServer registers the corpus tools on a fresh MCP server.
func NewServer(svc Services) *server.MCPServer {
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	s := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(true))
	s.AddTool(searchCorpusTool(), handleSearchCorpus(svc))
	s.AddTool(askCorpusTool(), handleAskCorpus(svc))
	s.AddTool(listDocumentsTool(), handleListDocuments(svc))
	return s
}
