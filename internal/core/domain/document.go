package domain

// Document is a source text handed to the index builder.
// It is only held for the duration of a build.
type Document struct {
	// SourceID identifies where the text came from (file path or URL).
	SourceID string

	// Content is the plain text body.
	Content string
}

// Chunk is a contiguous window of a document's token sequence.
type Chunk struct {
	// SourceID links to the Document that produced this chunk.
	SourceID string

	// FileChunkIdx is the 0-based position of the chunk within its document.
	FileChunkIdx int

	// TokenStart is the offset of the first token in the document.
	TokenStart int

	// Tokens holds the tokens covered by this window.
	Tokens []string

	// Text is the tokens joined for embedding and display.
	Text string
}

// TokenCount returns the number of tokens in the chunk.
func (c Chunk) TokenCount() int {
	return len(c.Tokens)
}

// ChunkMeta describes the vector stored at position ChunkIdx of an index.
// The JSON layout is the metadata file format.
type ChunkMeta struct {
	SourcePath   string `json:"source_path"`
	ChunkIdx     int    `json:"chunk_idx"`
	FileChunkIdx int    `json:"file_chunk_idx"`
	Text         string `json:"text"`
}

// Record is an embedded chunk. ChunkIdx is its global position in insertion
// order and addresses the vector inside the vector index.
type Record struct {
	ChunkMeta

	// Vector is the embedding of Text.
	Vector []float32
}
