package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func handleSearchCorpus(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question parameter is required"), nil
		}

		result, err := svc.Query.Search(ctx, question, domain.SearchOptions{TopK: topK(request)})
		if err != nil {
			svc.Logger.Error("mcp_search_failed", "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}
		return mcp.NewToolResultText(formatRetrieval(question, result)), nil
	}
}

func handleAskCorpus(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question parameter is required"), nil
		}

		answer, err := svc.Query.Answer(ctx, question, domain.SearchOptions{
			TopK:           topK(request),
			ConversationID: request.GetString("conversation_id", ""),
		})
		if err != nil {
			svc.Logger.Error("mcp_ask_failed", "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("answer error: %v", err)), nil
		}
		return mcp.NewToolResultText(formatAnswer(answer)), nil
	}
}

func handleListDocuments(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docs, err := svc.Documents.List(ctx)
		if err != nil {
			svc.Logger.Error("mcp_list_documents_failed", "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}
		return mcp.NewToolResultText(formatDocuments(docs)), nil
	}
}

func topK(request mcp.CallToolRequest) int {
	k := request.GetInt("top_k", defaultTopK)
	if k <= 0 {
		return defaultTopK
	}
	return min(k, maxTopK)
}
