package corpus

import "iter"

// Span is a contiguous token range of a corpus: the whole book or a window
// of pages. Matching never looks outside its span.
type Span struct {
	c      *Corpus
	lo, hi int
	first  int
	end    int
}

// All returns a span over the whole corpus.
func (c *Corpus) All() Span {
	return Span{c: c, lo: 0, hi: len(c.tokens), first: 0, end: len(c.pages)}
}

// Window returns the pages from before pages ahead of around's page up to
// after pages past it. An asymmetric radius biases the search in one
// direction. Pages outside the corpus are clamped.
func (c *Corpus) Window(around Position, before, after int) Span {
	if len(c.pages) == 0 {
		return Span{c: c}
	}
	before = max(before, 0)
	after = max(after, 0)
	center := c.nearest(around.Page)
	first := max(center-before, 0)
	last := min(center+after, len(c.pages)-1)
	return Span{
		c:     c,
		lo:    c.meta[first].tokStart,
		hi:    c.meta[last].tokEnd,
		first: first,
		end:   last + 1,
	}
}

// Corpus returns the corpus the span belongs to.
func (s Span) Corpus() *Corpus { return s.c }

// Start returns the first token index in the span.
func (s Span) Start() int { return s.lo }

// End returns the token index just past the span.
func (s Span) End() int { return s.hi }

// Len returns the number of tokens in the span.
func (s Span) Len() int { return s.hi - s.lo }

// Empty reports whether the span has no tokens.
func (s Span) Empty() bool { return s.hi <= s.lo }

// Pages returns the number of pages covered.
func (s Span) Pages() int { return s.end - s.first }

// FirstPage returns the id of the first page covered. ok is false for a
// span without pages.
func (s Span) FirstPage() (id PageID, ok bool) {
	if s.c == nil || s.end <= s.first {
		return 0, false
	}
	return s.c.pages[s.first].ID, true
}

// LastPage returns the id of the last page covered.
func (s Span) LastPage() (id PageID, ok bool) {
	if s.c == nil || s.end <= s.first {
		return 0, false
	}
	return s.c.pages[s.end-1].ID, true
}

// Occurrences returns the ascending token indexes of term inside the span.
func (s Span) Occurrences(term int32) []int {
	if s.c == nil || s.Empty() {
		return nil
	}
	return s.c.postingsIn(term, s.lo, s.hi)
}

// Fragments yields the fragments of the pages covered, in reading order.
func (s Span) Fragments() iter.Seq[Fragment] {
	if s.c == nil {
		return func(func(Fragment) bool) {}
	}
	return s.c.fragmentsIn(s.first, s.end)
}
