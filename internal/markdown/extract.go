// Package markdown converts markdown documents into the plain text the
// chunker operates on, and extracts a section outline for source metadata.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Extractor parses markdown with goldmark and renders it back as plain text.
type Extractor struct {
	parser goldmark.Markdown
}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Extractor{parser: md}
}

// ToPlainText strips markdown structure, keeping headings, paragraphs, list
// items and code block contents as plain text separated by blank lines.
func (e *Extractor) ToPlainText(source []byte) string {
	reader := text.NewReader(source)
	doc := e.parser.Parser().Parse(reader)

	var buf strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		case *ast.FencedCodeBlock:
			if entering {
				writeLines(&buf, n, source)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if entering {
				writeLines(&buf, n, source)
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if entering {
				buf.Write(node.URL(source))
			}
			return ast.WalkSkipChildren, nil
		}

		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock:
				buf.WriteString("\n\n")
			case ast.KindListItem:
				buf.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

// Outline returns the document's header hierarchy flattened to paths like
// "Installation > Prerequisites", in document order. Documents without
// headers return nil.
func (e *Extractor) Outline(source []byte) ([]string, error) {
	reader := text.NewReader(source)
	doc := e.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(3),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var paths []string
	flattenItems(tree.Items, nil, &paths)
	return paths, nil
}

func flattenItems(items toc.Items, ancestors []string, paths *[]string) {
	for _, item := range items {
		current := append(append([]string(nil), ancestors...), string(item.Title))
		*paths = append(*paths, strings.Join(current, " > "))
		if len(item.Items) > 0 {
			flattenItems(item.Items, current, paths)
		}
	}
}

func writeLines(buf *strings.Builder, n ast.Node, source []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
}
