package reader

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const sampleMarkdown = `# Introduction
This is the introduction.

## Getting Started
Here's how to get started with the
project.

### Prerequisites
You'll need these things installed:

- Go
- a *terminal*

## Usage
Here's how to use it.

    pagesync book.epub

# Advanced Topics
More complex stuff here.

## Configuration
Configure everything.
`

func writeMarkdown(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestMarkdownTOC(t *testing.T) {
	mdFile := writeMarkdown(t, sampleMarkdown)

	f := &MarkdownFormat{}
	pages, err := f.Extract(mdFile)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	toc, err := f.TOC(mdFile, pages)
	if err != nil {
		t.Fatalf("TOC extraction failed: %v", err)
	}

	if len(toc) != 6 {
		t.Fatalf("Expected 6 TOC entries, got %d", len(toc))
	}

	expectedLevels := []int{0, 1, 2, 1, 0, 1} // h1=0, h2=1, h3=2
	expectedTitles := []string{"Introduction", "Getting Started", "Prerequisites", "Usage", "Advanced Topics", "Configuration"}
	expectedPages := []int{0, 1, 1, 2, 3, 4}
	for i, entry := range toc {
		if entry.Level != expectedLevels[i] {
			t.Errorf("Entry %d (%s): expected level %d, got %d", i, entry.Title, expectedLevels[i], entry.Level)
		}
		if entry.Title != expectedTitles[i] {
			t.Errorf("Entry %d: expected title %q, got %q", i, expectedTitles[i], entry.Title)
		}
		if entry.Page != expectedPages[i] {
			t.Errorf("Entry %d (%s): expected page %d, got %d", i, entry.Title, expectedPages[i], entry.Page)
		}
	}
	if toc[0].Preview != "Introduction This is the introduction." {
		t.Errorf("Preview = %q", toc[0].Preview)
	}
}

func TestMarkdownPages(t *testing.T) {
	f := &MarkdownFormat{}
	pages, err := f.Extract(writeMarkdown(t, sampleMarkdown))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(pages) != 5 {
		t.Fatalf("Expected 5 pages, got %d", len(pages))
	}

	want := []string{
		"Getting Started",
		"Here's how to get started with the\nproject.",
		"Prerequisites",
		"You'll need these things installed:",
		"Go",
		"a terminal",
	}
	if !slices.Equal(pages[1].Texts, want) {
		t.Errorf("page 1 texts = %q, want %q", pages[1].Texts, want)
	}
	if pages[1].Title != "Getting Started" {
		t.Errorf("page 1 title = %q", pages[1].Title)
	}
	if got := pages[2].Texts; len(got) != 3 || got[2] != "pagesync book.epub" {
		t.Errorf("page 2 texts = %q", got)
	}
}

func TestMarkdownWithoutHeadings(t *testing.T) {
	f := &MarkdownFormat{}
	pages, err := f.Extract(writeMarkdown(t, "Just text.\n\nAnd more text."))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(pages) != 1 || len(pages[0].Texts) != 2 || pages[0].Title != "" {
		t.Errorf("pages = %+v", pages)
	}
}

func TestLoadMarkdownBookChapters(t *testing.T) {
	b, err := LoadBook(writeMarkdown(t, sampleMarkdown), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadBook: %v", err)
	}
	want := []Chapter{
		{Title: "Introduction", PageStart: 0, PageEnd: 2},
		{Title: "Advanced Topics", PageStart: 3, PageEnd: 4},
	}
	if !slices.Equal(b.Chapters, want) {
		t.Errorf("Chapters = %+v, want %+v", b.Chapters, want)
	}
}
