package normalisers

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Set selects a normaliser by file extension. Later registrations win.
type Set struct {
	byExt map[string]driven.Normaliser
}

// NewSet creates a set from the given normalisers.
func NewSet(ns ...driven.Normaliser) *Set {
	s := &Set{byExt: make(map[string]driven.Normaliser)}
	for _, n := range ns {
		for _, ext := range n.Extensions() {
			s.byExt[strings.ToLower(ext)] = n
		}
	}
	return s
}

// Defaults returns the built-in Markdown and HTML normalisers.
func Defaults() *Set {
	return NewSet(markdown.New(), html.New())
}

// Normalise returns content converted by the normaliser for path's
// extension, or content unchanged when none matches.
func (s *Set) Normalise(path, content string) string {
	n, ok := s.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return content
	}
	return n.Normalise(content)
}

// Source normalises the documents of another source.
type Source struct {
	inner driven.DocumentSource
	set   *Set
}

// NewSource wraps inner.
func NewSource(inner driven.DocumentSource, set *Set) *Source {
	return &Source{inner: inner, set: set}
}

// Documents returns the inner documents with their content normalised.
// Order and source ids are unchanged.
func (s *Source) Documents(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.inner.Documents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Content = s.set.Normalise(docs[i].SourceID, docs[i].Content)
	}
	return docs, nil
}
