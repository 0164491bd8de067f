package reader

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownFormat implements Format for Markdown files. Every level 1 or 2
// heading starts a page; each block is a text.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

func (f *MarkdownFormat) Extract(filename string) ([]Page, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	pages, _ := parseMarkdown(src)
	return pages, nil
}

// TOC lists every heading with the page it falls on.
func (f *MarkdownFormat) TOC(filename string, _ []Page) ([]TOCEntry, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	_, toc := parseMarkdown(src)
	return toc, nil
}

func parseMarkdown(src []byte) ([]Page, []TOCEntry) {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var pages []Page
	var toc []TOCEntry
	startPage := func(title string) {
		if n := len(pages); n > 0 && len(pages[n-1].Texts) == 0 && pages[n-1].Title == "" {
			pages[n-1].Title = title
			return
		}
		pages = append(pages, Page{Title: title})
	}
	addText := func(t string) {
		if t == "" {
			return
		}
		if len(pages) == 0 {
			pages = append(pages, Page{})
		}
		last := &pages[len(pages)-1]
		last.Texts = append(last.Texts, t)
	}

	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch b := c.(type) {
			case *ast.Heading:
				title := inlineText(b, src)
				if b.Level <= 2 {
					startPage(title)
				}
				addText(title)
				if len(pages) > 0 {
					toc = append(toc, TOCEntry{Title: title, Page: len(pages) - 1, Level: b.Level - 1})
				}
			case *ast.Paragraph, *ast.TextBlock:
				addText(inlineText(c, src))
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				addText(blockLines(c, src))
			case *ast.HTMLBlock, *ast.ThematicBreak:
			default:
				walk(c)
			}
		}
	}
	walk(doc)

	for i := range toc {
		toc[i].Preview = pagePreview(pages[toc[i].Page])
	}
	return pages, toc
}

// inlineText returns the text of a block's inline children. Line breaks
// are kept so hyphenated line ends can be joined later.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func blockLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}
