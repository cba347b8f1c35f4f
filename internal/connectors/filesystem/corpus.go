// Package filesystem reads a directory tree as a document corpus.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Corpus implements the interface.
var _ driven.DocumentSource = (*Corpus)(nil)

// Corpus walks a directory and yields every matching file as a document.
// Hidden files and directories are skipped.
type Corpus struct {
	rootPath   string
	extensions map[string]struct{}
}

// New creates a corpus rooted at rootPath. Extensions are matched
// case-insensitively; an empty list uses domain.DefaultExtensions.
func New(rootPath string, extensions []string) *Corpus {
	if len(extensions) == 0 {
		extensions = domain.DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Corpus{rootPath: rootPath, extensions: exts}
}

// RootPath returns the directory being read.
func (c *Corpus) RootPath() string {
	return c.rootPath
}

// Documents reads every matching file, ordered by absolute path.
// Source ids are absolute paths; invalid UTF-8 is replaced.
func (c *Corpus) Documents(ctx context.Context) ([]domain.Document, error) {
	paths, err := c.Paths(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, domain.Document{
			SourceID: path,
			Content:  strings.ToValidUTF8(string(data), "�"),
		})
	}
	logger.Debug("Read %d documents from %s", len(docs), c.rootPath)
	return docs, nil
}

// Paths returns the sorted absolute paths of every matching file.
func (c *Corpus) Paths(ctx context.Context) ([]string, error) {
	root, err := filepath.Abs(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", c.rootPath, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := c.extensions[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	slices.Sort(paths)
	return paths, nil
}

// isHidden reports whether a file name starts with a dot. "." and ".." are not hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
