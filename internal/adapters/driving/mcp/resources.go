package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for index resources.
	uriScheme = "sercha-rag://"

	manifestURI = uriScheme + "index"
	chunkPrefix = uriScheme + "chunks/"
)

// manifestInfo is the JSON shape of the index resource.
type manifestInfo struct {
	ID        string `json:"id"`
	Metric    string `json:"metric"`
	Dimension int    `json:"dimension"`
	Count     int    `json:"count"`
	State     string `json:"state"`
}

// registerResources registers resource handlers when an index inspector is wired.
func (s *Server) registerResources() {
	if s.ports.Index == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         manifestURI,
		Name:        "index",
		Description: "Manifest of the loaded index",
		MIMEType:    "application/json",
	}, s.handleManifestResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: chunkPrefix + "{chunkIdx}",
		Name:        "chunk",
		Description: "One indexed chunk by its global chunk index",
		MIMEType:    "application/json",
	}, s.handleChunkResource)
}

// handleManifestResource returns the manifest and lifecycle state.
func (s *Server) handleManifestResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	m := s.ports.Index.Manifest()
	info := manifestInfo{
		ID:        m.ID,
		Metric:    m.Metric.String(),
		Dimension: m.Dimension,
		Count:     m.Count,
		State:     s.ports.Search.State().String(),
	}
	return jsonResource(req.Params.URI, info)
}

// handleChunkResource returns the metadata of one chunk.
func (s *Server) handleChunkResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	idx, ok := extractChunkIdx(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	meta, err := s.ports.Index.Chunk(idx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading chunk %d: %w", idx, err)
	}
	return jsonResource(req.Params.URI, meta)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractChunkIdx parses the index from a URI like sercha-rag://chunks/{chunkIdx}.
func extractChunkIdx(uri string) (int, bool) {
	if !strings.HasPrefix(uri, chunkPrefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(uri, chunkPrefix))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
