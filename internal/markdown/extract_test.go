package markdown

import (
	"strings"
	"testing"
)

func TestToPlainText_StripsFormatting(t *testing.T) {
	input := `# Getting Started

This is **bold** and *italic* text with a [link](https://example.com).

## Details

- first item
- second item
`

	extractor := NewExtractor()
	plain := extractor.ToPlainText([]byte(input))

	for _, want := range []string{"Getting Started", "bold", "italic", "link", "first item", "second item"} {
		if !strings.Contains(plain, want) {
			t.Errorf("Plain text missing %q:\n%s", want, plain)
		}
	}
	for _, marker := range []string{"**", "](", "# "} {
		if strings.Contains(plain, marker) {
			t.Errorf("Plain text still contains markdown marker %q:\n%s", marker, plain)
		}
	}
}

func TestToPlainText_KeepsCodeBlocks(t *testing.T) {
	input := "# Usage\n\nRun it:\n\n```go\nfunc main() {}\n```\n"

	extractor := NewExtractor()
	plain := extractor.ToPlainText([]byte(input))

	if !strings.Contains(plain, "func main() {}") {
		t.Errorf("Code block content lost:\n%s", plain)
	}
}

func TestToPlainText_PlainInputUnchanged(t *testing.T) {
	input := "Just a plain paragraph with nothing fancy."
	extractor := NewExtractor()
	plain := extractor.ToPlainText([]byte(input))
	if plain != input {
		t.Errorf("Expected %q, got %q", input, plain)
	}
}

func TestOutline_FlattensHierarchy(t *testing.T) {
	input := `# Installation

Intro.

## Prerequisites

Need these.

## Steps

Do this.

# Reference

Other things.
`

	extractor := NewExtractor()
	outline, err := extractor.Outline([]byte(input))
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}

	want := []string{
		"Installation",
		"Installation > Prerequisites",
		"Installation > Steps",
		"Reference",
	}
	if len(outline) != len(want) {
		t.Fatalf("Expected %d entries, got %d: %v", len(want), len(outline), outline)
	}
	for i := range want {
		if outline[i] != want[i] {
			t.Errorf("Outline[%d] = %q, want %q", i, outline[i], want[i])
		}
	}
}

func TestOutline_NoHeaders(t *testing.T) {
	extractor := NewExtractor()
	outline, err := extractor.Outline([]byte("no headers here at all"))
	if err != nil {
		t.Fatalf("Outline failed: %v", err)
	}
	if len(outline) != 0 {
		t.Errorf("Expected empty outline, got %v", outline)
	}
}
