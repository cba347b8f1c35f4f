package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	state   domain.ServiceState
	count   int

	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) State() domain.ServiceState { return m.state }
func (m *mockSearchService) Count() int { return m.count }

// mockIndexInspector is a mock implementation of driving.IndexInspector.
type mockIndexInspector struct {
	manifest domain.Manifest
	chunks   []domain.ChunkMeta
}

func (m *mockIndexInspector) Manifest() domain.Manifest { return m.manifest }

func (m *mockIndexInspector) Chunk(idx int) (domain.ChunkMeta, error) {
	if idx < 0 || idx >= len(m.chunks) {
		return domain.ChunkMeta{}, domain.ErrNotFound
	}
	return m.chunks[idx], nil
}
