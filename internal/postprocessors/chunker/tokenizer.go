package chunker

import (
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure WhitespaceTokenizer implements the interface.
var _ driven.Tokenizer = WhitespaceTokenizer{}

// WhitespaceTokenizer treats every run of non-space characters as one token.
// Windows never split a word.
type WhitespaceTokenizer struct{}

// Tokenize splits text on Unicode whitespace.
func (WhitespaceTokenizer) Tokenize(text string) []string {
	return strings.Fields(text)
}

// Join joins tokens with single spaces.
func (WhitespaceTokenizer) Join(tokens []string) string {
	return strings.Join(tokens, " ")
}
