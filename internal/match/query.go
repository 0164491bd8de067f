package match

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/bbalet/stopwords"

	"github.com/metcalfc/pagesync/internal/corpus"
)

// maxSeedPostings skips query tokens this frequent in the span as seed
// sources; they would propose a window almost everywhere.
const maxSeedPostings = 2000

// minFuzzyRunes is the shortest token compared by edit distance.
const minFuzzyRunes = 4

type cell struct {
	n     int
	first int
}

// query is a prepared query bound to one corpus. It is not shared between
// goroutines.
type query struct {
	c          *corpus.Corpus
	text       []string
	terms      []int32 // -1 when the token is not in the corpus
	similarity float64
	fuzzy      []map[int32]bool

	prev, cur []cell
}

func newQuery(c *corpus.Corpus, toks []string, similarity float64) *query {
	q := &query{
		c:          c,
		text:       toks,
		terms:      make([]int32, len(toks)),
		similarity: similarity,
		fuzzy:      make([]map[int32]bool, len(toks)),
	}
	for i, t := range toks {
		if id, ok := c.Term(t); ok {
			q.terms[i] = id
		} else {
			q.terms[i] = -1
		}
	}
	return q
}

// seeds proposes window starts: each in-span occurrence of an informative
// query token at query index i proposes occurrence-i. A token missing from the
// vocabulary seeds from the terms it is similar to, so a query with no exact
// token still finds its windows. Stop words and digits only seed when nothing
// else does.
func (q *query) seeds(space corpus.Span) []int {
	sources := make([][]int32, len(q.terms))
	for i, term := range q.terms {
		if term >= 0 {
			sources[i] = []int32{term}
		} else {
			sources[i] = q.fuzzyTerms(i)
		}
	}

	set := make(map[int]struct{})
	collect := func(informativeOnly bool) {
		for i, terms := range sources {
			if informativeOnly && !informative(q.text[i]) {
				continue
			}
			for _, term := range terms {
				occ := space.Occurrences(term)
				if informativeOnly && len(occ) > maxSeedPostings {
					continue
				}
				for _, p := range occ {
					set[max(p-i, space.Start())] = struct{}{}
				}
			}
		}
	}
	collect(true)
	if len(set) == 0 {
		collect(false)
	}

	starts := make([]int, 0, len(set))
	for s := range set {
		starts = append(starts, s)
	}
	slices.Sort(starts)
	return starts
}

// fuzzyTerms scans the vocabulary for terms similar to query token i. The
// verdicts land in the memo that align reads.
func (q *query) fuzzyTerms(i int) []int32 {
	if utf8.RuneCountInString(q.text[i]) < minFuzzyRunes {
		return nil
	}
	var out []int32
	for id := range int32(q.c.VocabularySize()) {
		if q.equal(i, id) {
			out = append(out, id)
		}
	}
	return out
}

// informative reports whether tok is worth seeding from.
func informative(tok string) bool {
	return strings.TrimSpace(stopwords.CleanString(tok, "en", false)) != ""
}

// align computes the fuzzy token LCS of the query against corpus tokens
// [lo, hi) and the corpus index of the first matched token (-1 if none).
// Among equally long alignments the latest first token wins, which keeps the
// located start tight.
func (q *query) align(lo, hi int) (int, int) {
	w := hi - lo
	if w <= 0 {
		return 0, -1
	}
	if cap(q.prev) < w+1 {
		q.prev = make([]cell, w+1)
		q.cur = make([]cell, w+1)
	}
	prev, cur := q.prev[:w+1], q.cur[:w+1]
	for j := range prev {
		prev[j] = cell{first: -1}
	}

	for i := range q.terms {
		cur[0] = cell{first: -1}
		for j := 1; j <= w; j++ {
			best := prev[j]
			if left := cur[j-1]; better(left, best) {
				best = left
			}
			if q.equal(i, q.c.TermAt(lo+j-1)) {
				d := prev[j-1]
				diag := cell{n: d.n + 1, first: d.first}
				if d.n == 0 {
					diag.first = lo + j - 1
				}
				if better(diag, best) {
					best = diag
				}
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	res := prev[w]
	return res.n, res.first
}

func better(a, b cell) bool {
	if a.n != b.n {
		return a.n > b.n
	}
	return a.first > b.first
}

func (q *query) equal(i int, term int32) bool {
	if q.terms[i] == term {
		return true
	}
	memo := q.fuzzy[i]
	if v, ok := memo[term]; ok {
		return v
	}
	v := similar(q.text[i], q.c.TermText(term), q.similarity)
	if memo == nil {
		memo = make(map[int32]bool)
		q.fuzzy[i] = memo
	}
	memo[term] = v
	return v
}

// similar reports whether a and b are within the edit-distance similarity
// threshold. Short tokens must match exactly.
func similar(a, b string, threshold float64) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la < minFuzzyRunes || lb < minFuzzyRunes {
		return false
	}
	longest := max(la, lb)
	maxEdits := int(float64(longest) * (1 - threshold))
	if absInt(la-lb) > maxEdits {
		return false
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1-float64(d)/float64(longest) >= threshold
}
