package reader

import (
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFFormat implements Format for PDF files. Each PDF page is a page and
// each text line a text.
type PDFFormat struct{}

func init() {
	Register(&PDFFormat{})
}

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }

// Extract keeps pages whose text cannot be decoded as empty pages.
func (f *PDFFormat) Extract(filename string) ([]Page, error) {
	file, r, err := pdflib.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	n := r.NumPage()
	pages := make([]Page, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			logger.Warn("undecodable pdf page", "path", filename, "page", i, "error", err)
			continue
		}
		pages[i-1].Texts = nonEmptyLines(text)
	}
	return pages, nil
}

func nonEmptyLines(text string) []string {
	var out []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
