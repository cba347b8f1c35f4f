package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// SearchToolName is the name of the search tool.
const SearchToolName = "search_articles"

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the natural-language query"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	Rerank bool   `json:"rerank,omitempty" jsonschema:"boost chunks that share words with the query"`
}

// ToolError is the JSON error object returned instead of a result array.
type ToolError struct {
	Error ToolErrorBody `json:"error"`
}

// ToolErrorBody carries a stable code and a human-readable message.
type ToolErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        SearchToolName,
		Description: "Semantic search over the indexed articles. Returns the closest chunks ordered by descending score.",
	}, s.handleSearch)
}

// handleSearch handles the search tool invocation.
// Results and failures are both returned as JSON text, never mixed.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, any, error) {
	opts := domain.SearchOptions{TopK: input.TopK, Rerank: input.Rerank}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		logger.Warn("%s failed: %v", SearchToolName, err)
		return errorResult(err), nil, nil
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	data, err := json.Marshal(results)
	if err != nil {
		return nil, nil, fmt.Errorf("marshalling results: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult converts an error into a tool error result.
func errorResult(err error) *mcp.CallToolResult {
	data, _ := json.Marshal(ToolError{Error: ToolErrorBody{
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	}})
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
