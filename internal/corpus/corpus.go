// Package corpus holds the per-page text index of the open book that the
// position resolver searches.
//
// A Corpus is built once when a book opens and is read-only afterwards, so any
// number of resolutions may read it concurrently. Opening another book builds
// a new Corpus; in-flight requests keep the one they captured.
package corpus

import (
	"fmt"
	"iter"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/metcalfc/pagesync/internal/errors"
	"github.com/metcalfc/pagesync/internal/textnorm"
)

// PageID identifies a page. IDs increase strictly with reading order.
type PageID int

// PageSource is one page as delivered by the book loader: raw text fragments
// in display order.
type PageSource struct {
	ID    PageID
	Texts []string
}

// Page is an indexed page of normalized fragments.
type Page struct {
	ID        PageID
	Fragments []textnorm.Text
}

// Fragment is one normalized fragment with its location.
type Fragment struct {
	Page   PageID
	Offset int
	Text   textnorm.Text
}

type pageMeta struct {
	tokStart int
	tokEnd   int
	fragBase int
}

type provenance struct {
	page int32 // index into pages
	frag int32
}

// Corpus is the immutable index of one book.
type Corpus struct {
	pages []Page
	meta  []pageMeta

	terms    map[string]int32
	vocab    []string
	tokens   []int32
	prov     []provenance
	postings [][]int

	fragments int
}

// Build normalizes every fragment and indexes the tokens. Page IDs must be
// strictly increasing; empty pages are kept.
func Build(sources []PageSource) (*Corpus, error) {
	for i := 1; i < len(sources); i++ {
		if sources[i].ID <= sources[i-1].ID {
			return nil, errors.NewCorpusInvalidError(
				fmt.Sprintf("page id %d does not follow %d", sources[i].ID, sources[i-1].ID), i)
		}
	}

	pages := make([]Page, len(sources))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			frags := make([]textnorm.Text, len(src.Texts))
			for j, raw := range src.Texts {
				frags[j] = textnorm.Normalize(raw)
			}
			pages[i] = Page{ID: src.ID, Fragments: frags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Corpus{
		pages: pages,
		meta:  make([]pageMeta, len(pages)),
		terms: make(map[string]int32),
	}
	for pi, p := range pages {
		m := &c.meta[pi]
		m.tokStart = len(c.tokens)
		m.fragBase = c.fragments
		for fi, frag := range p.Fragments {
			for _, tok := range frag.Tokens() {
				id, ok := c.terms[tok]
				if !ok {
					id = int32(len(c.vocab))
					c.terms[tok] = id
					c.vocab = append(c.vocab, tok)
					c.postings = append(c.postings, nil)
				}
				c.postings[id] = append(c.postings[id], len(c.tokens))
				c.tokens = append(c.tokens, id)
				c.prov = append(c.prov, provenance{page: int32(pi), frag: int32(fi)})
			}
		}
		m.tokEnd = len(c.tokens)
		c.fragments += len(p.Fragments)
	}
	return c, nil
}

// PageCount returns the number of pages, including empty ones.
func (c *Corpus) PageCount() int { return len(c.pages) }

// TokenCount returns the number of indexed tokens.
func (c *Corpus) TokenCount() int { return len(c.tokens) }

// FragmentCount returns the number of fragments across all pages.
func (c *Corpus) FragmentCount() int { return c.fragments }

// VocabularySize returns the number of distinct tokens.
func (c *Corpus) VocabularySize() int { return len(c.vocab) }

// PageAt returns the i-th page in reading order.
func (c *Corpus) PageAt(i int) Page { return c.pages[i] }

// IndexOf returns the reading-order index of the page with the given id.
func (c *Corpus) IndexOf(id PageID) (int, bool) {
	i := c.search(id)
	if i < len(c.pages) && c.pages[i].ID == id {
		return i, true
	}
	return 0, false
}

func (c *Corpus) search(id PageID) int {
	return sort.Search(len(c.pages), func(i int) bool { return c.pages[i].ID >= id })
}

// nearest maps an id to the index of that page, or of the closest following
// page, clamped to the last page.
func (c *Corpus) nearest(id PageID) int {
	i := c.search(id)
	if i >= len(c.pages) {
		i = len(c.pages) - 1
	}
	return i
}

// Fragments yields every fragment in reading order.
func (c *Corpus) Fragments() iter.Seq[Fragment] {
	return c.fragmentsIn(0, len(c.pages))
}

func (c *Corpus) fragmentsIn(first, end int) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		for pi := first; pi < end; pi++ {
			p := c.pages[pi]
			for off, text := range p.Fragments {
				if !yield(Fragment{Page: p.ID, Offset: off, Text: text}) {
					return
				}
			}
		}
	}
}

// Term returns the dictionary id of a canonical token.
func (c *Corpus) Term(tok string) (int32, bool) {
	id, ok := c.terms[tok]
	return id, ok
}

// TermText returns the token for a dictionary id.
func (c *Corpus) TermText(id int32) string { return c.vocab[id] }

// TermAt returns the dictionary id of the token at index i.
func (c *Corpus) TermAt(i int) int32 { return c.tokens[i] }

// PositionAt returns the page and fragment holding the token at index i.
func (c *Corpus) PositionAt(i int) Position {
	p := c.prov[i]
	return Position{Page: c.pages[p.page].ID, Offset: int(p.frag)}
}

// TokenIndex returns the index of the first token at or after pos. Positions
// outside the corpus are clamped.
func (c *Corpus) TokenIndex(pos Position) int {
	if len(c.pages) == 0 {
		return 0
	}
	pi := c.nearest(pos.Page)
	if c.pages[pi].ID < pos.Page {
		return c.meta[pi].tokEnd
	}
	if c.pages[pi].ID > pos.Page {
		return c.meta[pi].tokStart
	}
	m := c.meta[pi]
	for t := m.tokStart; t < m.tokEnd; t++ {
		if int(c.prov[t].frag) >= pos.Offset {
			return t
		}
	}
	return m.tokEnd
}

// FragmentOrdinal returns the reading-order index of the fragment at pos,
// counted across the whole book. Offsets are clamped into the page.
func (c *Corpus) FragmentOrdinal(pos Position) int {
	if len(c.pages) == 0 {
		return 0
	}
	pi := c.nearest(pos.Page)
	off := pos.Offset
	if n := len(c.pages[pi].Fragments); off >= n {
		off = n - 1
	}
	if off < 0 {
		off = 0
	}
	return c.meta[pi].fragBase + off
}

// PositionOfOrdinal is the inverse of FragmentOrdinal. Ordinals outside the
// book are clamped to its first or last fragment.
func (c *Corpus) PositionOfOrdinal(ord int) Position {
	if c.fragments == 0 {
		if len(c.pages) == 0 {
			return Position{}
		}
		return Position{Page: c.pages[0].ID}
	}
	ord = min(max(ord, 0), c.fragments-1)
	pi := sort.Search(len(c.pages), func(i int) bool {
		return c.meta[i].fragBase+len(c.pages[i].Fragments) > ord
	})
	return Position{Page: c.pages[pi].ID, Offset: ord - c.meta[pi].fragBase}
}

// FragmentDistance returns the signed number of fragments from a to b.
func (c *Corpus) FragmentDistance(a, b Position) int {
	return c.FragmentOrdinal(b) - c.FragmentOrdinal(a)
}

// PageDistance returns the signed number of pages from a to b.
func (c *Corpus) PageDistance(a, b Position) int {
	if len(c.pages) == 0 {
		return 0
	}
	return c.nearest(b.Page) - c.nearest(a.Page)
}

// postingsIn returns the token indexes of term within [lo, hi).
func (c *Corpus) postingsIn(term int32, lo, hi int) []int {
	list := c.postings[term]
	from := sort.SearchInts(list, lo)
	to := sort.SearchInts(list, hi)
	return list[from:to]
}
