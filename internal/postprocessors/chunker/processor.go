// Package chunker provides a fixed-size, overlapping token window chunker.
package chunker

import (
	"context"
	"fmt"
	"iter"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of tokens per chunk.
const DefaultChunkSize = domain.DefaultWindowSize

// DefaultChunkOverlap is the default number of overlapping tokens.
const DefaultChunkOverlap = domain.DefaultOverlap

// Processor splits document content into overlapping token windows.
// Chunk i starts at token i*(size-overlap) and holds up to size tokens.
type Processor struct {
	chunkSize int
	overlap   int
	tokenizer driven.Tokenizer
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the window size in tokens.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithTokenizer replaces the default whitespace tokenizer.
func WithTokenizer(t driven.Tokenizer) Option {
	return func(p *Processor) {
		if t != nil {
			p.tokenizer = t
		}
	}
}

// New creates a new chunker processor with the given options.
// It fails with domain.ErrConfig unless 0 <= overlap < size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		tokenizer: WhitespaceTokenizer{},
	}

	for _, opt := range opts {
		opt(p)
	}

	cfg := domain.ChunkingSettings{WindowSize: p.chunkSize, Overlap: p.overlap}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// WindowSize returns the tokens per chunk.
func (p *Processor) WindowSize() int {
	return p.chunkSize
}

// Overlap returns the tokens shared by consecutive chunks.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunks returns the document's chunks as a lazy sequence.
// Each iteration re-tokenizes the content, so the sequence can be ranged over repeatedly.
func (p *Processor) Chunks(doc domain.Document) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		tokens := p.tokenizer.Tokenize(doc.Content)
		n := len(tokens)
		if n == 0 {
			return
		}

		step := p.chunkSize - p.overlap
		for position, start := 0, 0; ; position, start = position+1, start+step {
			end := min(start+p.chunkSize, n)
			window := tokens[start:end:end]

			chunk := domain.Chunk{
				SourceID:     doc.SourceID,
				FileChunkIdx: position,
				TokenStart:   start,
				Tokens:       window,
				Text:         p.tokenizer.Join(window),
			}
			if !yield(chunk) || end == n {
				return
			}
		}
	}
}

// Process collects every chunk of the document.
func (p *Processor) Process(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, ChunkCount(len(p.tokenizer.Tokenize(doc.Content)), p.chunkSize, p.overlap))
	for chunk := range p.Chunks(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ChunkCount returns the number of windows a document of n tokens yields:
// ceil(max(n-overlap, 0) / (size-overlap)), and at least one for n > 0.
func ChunkCount(n, size, overlap int) int {
	if n <= 0 {
		return 0
	}
	step := size - overlap
	count := (max(n-overlap, 0) + step - 1) / step
	return max(count, 1)
}
