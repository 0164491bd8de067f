package reader

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXFormat implements Format for Word documents. Level 1 and 2 headings
// start pages; each paragraph is a text.
type DOCXFormat struct{}

func init() {
	Register(&DOCXFormat{})
}

func (f *DOCXFormat) Name() string         { return "DOCX" }
func (f *DOCXFormat) Extensions() []string { return []string{".docx"} }

func (f *DOCXFormat) Extract(filename string) ([]Page, error) {
	pages, _, err := parseDOCX(filename)
	return pages, err
}

// TOC lists the headings with the page they fall on.
func (f *DOCXFormat) TOC(filename string, pages []Page) ([]TOCEntry, error) {
	_, toc, err := parseDOCX(filename)
	if err != nil {
		return nil, err
	}
	for i := range toc {
		if toc[i].Page < len(pages) {
			toc[i].Preview = pagePreview(pages[toc[i].Page])
		}
	}
	return toc, nil
}

func parseDOCX(filename string) ([]Page, []TOCEntry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, nil, err
	}

	doc, err := docx.Parse(file, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("parse docx: %w", err)
	}

	var pages []Page
	var toc []TOCEntry
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		level := docxHeadingLevel(para)
		if len(pages) == 0 || (level > 0 && level <= 2 && len(pages[len(pages)-1].Texts) > 0) {
			pages = append(pages, Page{})
		}
		last := &pages[len(pages)-1]
		if level > 0 {
			if level <= 2 && last.Title == "" {
				last.Title = text
			}
			toc = append(toc, TOCEntry{Title: text, Page: len(pages) - 1, Level: level - 1})
		}
		last.Texts = append(last.Texts, text)
	}
	return pages, toc, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch strings.TrimPrefix(style, "heading") {
	case "1":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
