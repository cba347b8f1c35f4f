package domain

// DefaultTopK is used when a search does not ask for a positive result count.
const DefaultTopK = 5

// SearchOptions configures a search query.
type SearchOptions struct {
	// TopK is the maximum number of results. Non-positive means DefaultTopK.
	TopK int

	// Rerank adds a lexical token-overlap bonus and orders by the reranked score.
	Rerank bool
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// Score is the vector similarity (higher is more similar).
	Score float64 `json:"score"`

	// RerankScore is set only when reranking was requested.
	RerankScore *float64 `json:"rerank_score,omitempty"`

	// TokenOverlap is the number of query tokens found in the chunk (rerank only).
	TokenOverlap int `json:"token_overlap,omitempty"`

	SourcePath   string `json:"source_path"`
	ChunkIdx     int    `json:"chunk_idx"`
	FileChunkIdx int    `json:"file_chunk_idx"`
	Text         string `json:"text"`
}
