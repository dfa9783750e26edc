package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bull/corpusqa/internal/markdown"
)

// FSSource reads documents from a directory tree on the local filesystem.
// Only .md and .txt files are considered.
type FSSource struct {
	root      string
	extractor *markdown.Extractor
}

// NewFSSource creates a filesystem source rooted at dir.
func NewFSSource(dir string) (*FSSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open source directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", dir)
	}

	return &FSSource{
		root:      dir,
		extractor: markdown.NewExtractor(),
	}, nil
}

// List walks the directory tree and returns relative paths of all markdown
// and plain text files, sorted for a stable ingestion order.
func (s *FSSource) List(ctx context.Context) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			// Skip hidden directories like .git
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents under %s: %w", s.root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Fetch reads a single file and converts it to plain text. Markdown files
// are stripped of formatting and get a header outline; text files are
// passed through as-is.
func (s *FSSource) Fetch(ctx context.Context, relativePath string) (*Document, error) {
	fullPath := filepath.Join(s.root, filepath.FromSlash(relativePath))

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}

	doc := &Document{
		ID:     DocumentID(relativePath),
		Path:   relativePath,
		Origin: fullPath,
	}

	if strings.ToLower(filepath.Ext(relativePath)) == ".md" {
		doc.Text = s.extractor.ToPlainText(raw)
		outline, err := s.extractor.Outline(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to outline %s: %w", relativePath, err)
		}
		doc.Outline = outline
	} else {
		doc.Text = string(raw)
	}

	return doc, nil
}
