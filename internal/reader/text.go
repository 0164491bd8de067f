package reader

import (
	"os"
	"strings"
)

// TextFormat reads plain text. Paragraphs are separated by blank lines and
// the whole file is one section; LoadBook splits it into pages.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt", ".text"} }

func (f *TextFormat) Extract(filename string) ([]Page, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return []Page{{Texts: splitParagraphs(string(data))}}, nil
}

// splitParagraphs splits text on blank lines. Lines inside a paragraph are
// kept so a hyphen at a line end can still be joined.
func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return paras
}
