package reader

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBFormat implements Format for EPUB files. Each spine item is a page and
// each block element a text.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Extract returns one page per spine item. Items that cannot be read become
// empty pages so page numbers stay aligned with the spine.
func (f *EPUBFormat) Extract(filename string) ([]Page, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]
	tocByHref := buildTOCHrefMap(filename, book)

	var pages []Page
	for _, ref := range spineItems(book) {
		page := Page{Title: tocByHref[ref.HREF]}
		if page.Title == "" {
			page.Title = tocByHref[path.Base(ref.HREF)]
		}

		r, err := ref.Open()
		if err != nil {
			logger.Warn("unreadable spine item", "href", ref.HREF, "error", err)
			pages = append(pages, page)
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			logger.Warn("unreadable spine item", "href", ref.HREF, "error", err)
			pages = append(pages, page)
			continue
		}
		page.Texts = extractFragmentsFromHTML(string(data))
		pages = append(pages, page)
	}
	return pages, nil
}

// spineItems returns the spine's manifest items in reading order.
func spineItems(book *epub.Rootfile) []*epub.Item {
	var items []*epub.Item
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item != nil {
			items = append(items, ref.Item)
		}
	}
	return items
}

// blockElements start and end a text block.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Li: true, atom.Blockquote: true,
	atom.Pre: true, atom.Td: true, atom.Th: true, atom.Dt: true, atom.Dd: true,
	atom.Figcaption: true, atom.Section: true, atom.Article: true, atom.Br: true,
	atom.Tr: true, atom.Hr: true,
}

// extractFragmentsFromHTML returns the visible text of an XHTML document as
// one string per block element, skipping the head, scripts and styles.
func extractFragmentsFromHTML(s string) []string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil
	}

	var out []string
	var cur strings.Builder
	flush := func() {
		if t := strings.Join(strings.Fields(cur.String()), " "); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			cur.WriteString(" ")
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style:
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()
	return out
}
