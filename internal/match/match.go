// Package match locates OCR-recognized text in a book corpus.
//
// The query is aligned token by token against windows of the corpus seeded
// from posting lists; each window is scored by a fuzzy longest common
// subsequence over tokens. A result is only reported as a match when the best
// window clears a confidence threshold and beats the best window elsewhere in
// the book by a margin, so repeated boilerplate yields Ambiguous instead of a
// guess.
package match

import (
	"cmp"
	"math"
	"slices"

	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/textnorm"
)

// Status is the outcome of a match.
type Status int

const (
	NoMatch Status = iota
	Matched
	Ambiguous
	Failed
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Ambiguous:
		return "ambiguous"
	case Failed:
		return "failed"
	default:
		return "no match"
	}
}

// Result is the outcome of locating one query.
//
// Position is meaningful for Matched and, as the preferred candidate, for
// Ambiguous. Err is set for Failed.
type Result struct {
	Status      Status
	Position    corpus.Position
	Confidence  float64
	RunnerUp    float64
	Candidates  int
	QueryTokens int
	Err         error
}

// Confident reports whether the result can be acted on.
func (r Result) Confident() bool {
	return r.Status == Matched
}

// FailedResult wraps an input error (unreadable image, OCR failure) as a
// result value.
func FailedResult(err error) Result {
	return Result{Status: Failed, Err: err}
}

// Config tunes matching.
type Config struct {
	// Threshold is the minimum score for a confident match.
	Threshold float64
	// MinGap is the minimum lead of the best window over the runner-up.
	MinGap float64
	// MaxQueryTokens caps the query at this many distinct tokens.
	MaxQueryTokens int
	// TokenSimilarity is the Levenshtein similarity at which two tokens
	// of four or more runes count as equal.
	TokenSimilarity float64
	// Slack widens each window past the query length, as a fraction of it.
	Slack float64
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:       0.6,
		MinGap:          0.1,
		MaxQueryTokens:  48,
		TokenSimilarity: 0.75,
		Slack:           0.25,
	}
}

// Matcher is safe for concurrent use.
type Matcher struct {
	cfg Config
	log *logging.Logger
}

// New returns a Matcher. Zero fields in cfg take their defaults, except
// Slack: zero keeps windows at the query length and only a negative Slack
// takes the default.
func New(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MinGap <= 0 {
		cfg.MinGap = def.MinGap
	}
	if cfg.MaxQueryTokens <= 0 {
		cfg.MaxQueryTokens = def.MaxQueryTokens
	}
	if cfg.TokenSimilarity <= 0 {
		cfg.TokenSimilarity = def.TokenSimilarity
	}
	if cfg.Slack < 0 {
		cfg.Slack = def.Slack
	}
	return &Matcher{cfg: cfg, log: logging.NewLogger("match")}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config { return m.cfg }

type candidate struct {
	start int // first matched corpus token
	score float64
}

// Match aligns query (recognized text lines, top to bottom) against space.
// hint, when non-nil, breaks ties in favour of the window closest to it.
func (m *Matcher) Match(query []string, space corpus.Span, hint *corpus.Position) Result {
	toks := capTokens(textnorm.TokenizeLines(query), m.cfg.MaxQueryTokens)
	if len(toks) == 0 || space.Empty() {
		return Result{Status: NoMatch, QueryTokens: len(toks)}
	}

	c := space.Corpus()
	q := newQuery(c, toks, m.cfg.TokenSimilarity)
	n := len(toks)

	var starts []int
	width := n + int(math.Ceil(float64(n)*m.cfg.Slack))
	if space.Len() <= n {
		starts = []int{space.Start()}
		width = space.Len()
	} else {
		starts = q.seeds(space)
	}
	if len(starts) == 0 {
		return Result{Status: NoMatch, QueryTokens: n}
	}

	best := make(map[int]float64, len(starts))
	for _, s := range starts {
		end := min(s+width, space.End())
		lcs, first := q.align(s, end)
		if first < 0 {
			continue
		}
		score := float64(lcs) / float64(n)
		if prev, ok := best[first]; !ok || score > prev {
			best[first] = score
		}
	}
	if len(best) == 0 {
		return Result{Status: NoMatch, QueryTokens: n}
	}

	cands := make([]candidate, 0, len(best))
	for start, score := range best {
		cands = append(cands, candidate{start: start, score: score})
	}
	hintTok := -1
	if hint != nil {
		hintTok = c.TokenIndex(*hint)
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		if r := cmp.Compare(b.score, a.score); r != 0 {
			return r
		}
		if hintTok >= 0 {
			if r := cmp.Compare(absInt(a.start-hintTok), absInt(b.start-hintTok)); r != 0 {
				return r
			}
		}
		return cmp.Compare(a.start, b.start)
	})

	winner := cands[0]
	sep := max(n/2, 1)
	runnerUp := 0.0
	for _, cd := range cands[1:] {
		if absInt(cd.start-winner.start) >= sep {
			runnerUp = cd.score
			break
		}
	}

	res := Result{
		Position:    c.PositionAt(winner.start),
		Confidence:  winner.score,
		RunnerUp:    runnerUp,
		Candidates:  len(cands),
		QueryTokens: n,
	}
	switch {
	case winner.score < m.cfg.Threshold:
		res.Status = NoMatch
		res.Position = corpus.Position{}
	case winner.score-runnerUp < m.cfg.MinGap:
		res.Status = Ambiguous
	default:
		res.Status = Matched
	}

	m.log.Debug("match finished",
		"status", res.Status,
		"query_tokens", n,
		"windows", len(starts),
		"confidence", res.Confidence,
		"runner_up", res.RunnerUp,
		"position", res.Position)
	return res
}

// capTokens keeps the prefix of toks holding at most maxDistinct distinct
// tokens and at most four times that many tokens overall.
func capTokens(toks []string, maxDistinct int) []string {
	seen := make(map[string]struct{}, maxDistinct)
	limit := maxDistinct * 4
	for i, t := range toks {
		if _, ok := seen[t]; !ok {
			if len(seen) == maxDistinct {
				return toks[:i]
			}
			seen[t] = struct{}{}
		}
		if i+1 >= limit {
			return toks[:i+1]
		}
	}
	return toks
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
