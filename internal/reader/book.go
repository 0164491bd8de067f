package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/logging"
)

var logger = logging.NewLogger("reader")

// Page is one page of a book: its visible text blocks in reading order.
// Pages without text are kept so page numbering matches the source.
type Page struct {
	Title string
	Texts []string
}

// Book is a loaded book split into pages.
type Book struct {
	Path     string
	Title    string
	Format   string
	Pages    []Page
	TOC      []TOCEntry
	Chapters []Chapter
}

// LoadOptions controls pagination.
type LoadOptions struct {
	// ParagraphsPerPage splits longer sections into several pages.
	ParagraphsPerPage int
}

// DefaultLoadOptions returns twelve paragraphs per page.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{ParagraphsPerPage: 12}
}

// LoadBook extracts the pages, table of contents and chapters of the book at
// path. A missing or unreadable table of contents is not an error.
func LoadBook(path string, opts LoadOptions) (*Book, error) {
	if opts.ParagraphsPerPage <= 0 {
		opts.ParagraphsPerPage = DefaultLoadOptions().ParagraphsPerPage
	}

	f := FormatFor(path)
	pages, err := f.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s as %s: %w", path, f.Name(), err)
	}

	var toc []TOCEntry
	if tp, ok := f.(TOCProvider); ok {
		toc, err = tp.TOC(path, pages)
		if err != nil {
			logger.Warn("no table of contents", "path", path, "error", err)
			toc = nil
		}
	}

	pages, starts := paginate(pages, opts.ParagraphsPerPage)
	for i := range toc {
		if p := toc[i].Page; p >= 0 && p < len(starts) {
			toc[i].Page = starts[p]
		}
	}

	b := &Book{
		Path:     path,
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Format:   f.Name(),
		Pages:    pages,
		TOC:      toc,
		Chapters: buildChapters(toc, pages),
	}
	logger.Info("book loaded", "path", path, "format", b.Format, "pages", len(pages),
		"toc_entries", len(toc), "chapters", len(b.Chapters))
	return b, nil
}

// paginate splits pages holding more than perPage texts. starts maps each
// source page index to the index of its first output page.
func paginate(pages []Page, perPage int) (out []Page, starts []int) {
	starts = make([]int, len(pages))
	for i, p := range pages {
		starts[i] = len(out)
		if len(p.Texts) <= perPage {
			out = append(out, p)
			continue
		}
		for lo := 0; lo < len(p.Texts); lo += perPage {
			hi := min(lo+perPage, len(p.Texts))
			out = append(out, Page{Title: p.Title, Texts: p.Texts[lo:hi]})
		}
	}
	return out, starts
}

// PageID returns the corpus id of the page at index i.
func PageID(i int) corpus.PageID { return corpus.PageID(i + 1) }

// PageIndex returns the page index for a corpus id.
func PageIndex(id corpus.PageID) int { return int(id) - 1 }

// PageTexts returns the page texts in reading order for corpus.Build.
func (b *Book) PageTexts() []corpus.PageSource {
	out := make([]corpus.PageSource, len(b.Pages))
	for i, p := range b.Pages {
		out[i] = corpus.PageSource{ID: PageID(i), Texts: p.Texts}
	}
	return out
}

// Corpus builds the search corpus for the book.
func (b *Book) Corpus() (*corpus.Corpus, error) {
	return corpus.Build(b.PageTexts())
}
