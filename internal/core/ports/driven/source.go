package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentSource supplies the corpus in a stable order.
type DocumentSource interface {
	// Documents returns every document, ordered by source id.
	Documents(ctx context.Context) ([]domain.Document, error)
}

// Tokenizer splits text into atomic units deterministically.
type Tokenizer interface {
	// Tokenize splits text. Identical input always yields identical output.
	Tokenize(text string) []string

	// Join renders tokens back into text.
	Join(tokens []string) string
}

// Chunker splits a document into overlapping token windows.
type Chunker interface {
	// Chunks returns a lazy, restartable sequence of the document's chunks.
	Chunks(doc domain.Document) iter.Seq[domain.Chunk]

	// WindowSize returns the tokens per chunk.
	WindowSize() int

	// Overlap returns the tokens shared by consecutive chunks.
	Overlap() int
}

// Normaliser turns one document format into plain text before chunking.
type Normaliser interface {
	// Extensions returns the lower-case file extensions handled, with the dot.
	Extensions() []string

	// Normalise returns the readable text of content.
	Normalise(content string) string
}
