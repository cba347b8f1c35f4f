package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// resultText returns the single text content of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results as a JSON array", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{Score: 0.95, SourcePath: "/docs/a.md", ChunkIdx: 3, FileChunkIdx: 1, Text: "first"},
				{Score: 0.5, SourcePath: "/docs/b.md", ChunkIdx: 7, FileChunkIdx: 0, Text: "second"},
			},
		}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", TopK: 2})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, "test", mockSearch.lastQuery)
		assert.Equal(t, domain.SearchOptions{TopK: 2}, mockSearch.lastOpts)

		var got []map[string]any
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
		require.Len(t, got, 2)
		assert.Equal(t, 0.95, got[0]["score"])
		assert.Equal(t, "/docs/a.md", got[0]["source_path"])
		assert.Equal(t, 3.0, got[0]["chunk_idx"])
		assert.Equal(t, 1.0, got[0]["file_chunk_idx"])
		assert.Equal(t, "first", got[0]["text"])
		assert.NotContains(t, got[0], "rerank_score")
	})

	t.Run("passes rerank and zero top_k through", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "q", Rerank: true})
		require.NoError(t, err)
		assert.Equal(t, domain.SearchOptions{Rerank: true}, mockSearch.lastOpts)
		assert.Equal(t, "[]", resultText(t, res))
	})

	t.Run("returns a JSON error object on failure", func(t *testing.T) {
		tests := []struct {
			err  error
			code string
		}{
			{domain.ErrNotReady, domain.CodeNotReady},
			{fmt.Errorf("%w: embed query: %w", domain.ErrSearch, domain.ErrTransient), domain.CodeSearch},
			{fmt.Errorf("%w: query has 3", domain.ErrDimensionMismatch), domain.CodeDimensionMismatch},
			{fmt.Errorf("%w: empty query", domain.ErrInvalidInput), domain.CodeInvalidInput},
			{fmt.Errorf("boom"), domain.CodeInternal},
		}
		for _, tt := range tests {
			t.Run(tt.code, func(t *testing.T) {
				server, err := NewServer(&Ports{Search: &mockSearchService{err: tt.err}})
				require.NoError(t, err)

				res, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})
				require.NoError(t, err)
				assert.True(t, res.IsError)

				var body ToolError
				require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
				assert.Equal(t, tt.code, body.Error.Code)
				assert.Equal(t, tt.err.Error(), body.Error.Message)
			})
		}
	})
}

func TestServer_SearchOverSession(t *testing.T) {
	ctx := context.Background()
	mockSearch := &mockSearchService{
		results: []domain.SearchResult{{Score: 0.9, SourcePath: "/docs/a.md", Text: "hit"}},
	}
	server, err := NewServer(&Ports{Search: mockSearch})
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, SearchToolName, tools.Tools[0].Name)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      SearchToolName,
		Arguments: map[string]any{"query": "machine learning", "top_k": 3},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "machine learning", mockSearch.lastQuery)
	assert.Equal(t, 3, mockSearch.lastOpts.TopK)

	var got []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, mockSearch.results, got)
}
