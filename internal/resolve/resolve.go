// Package resolve turns screenshots into reading positions.
//
// A Resolver binds one book corpus. Locate finds where a single screenshot
// sits in the book; Delta takes two screenshots and a known current position
// and reports how far, and in which direction, the reader moved between them.
// Delta narrows each search to a window of pages so repeated running headers
// elsewhere in the book do not produce false ties.
package resolve

import (
	"context"

	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/errors"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/match"
	"github.com/metcalfc/pagesync/internal/ocr"
)

// Options sets the page windows used by Delta. Before and after radii are
// independent so the search can lean forward, the usual reading direction.
type Options struct {
	// SearchBefore and SearchAfter bound the first screenshot's search
	// around the current position.
	SearchBefore int
	SearchAfter  int
	// AnchorBefore and AnchorAfter bound the second screenshot's search
	// around the first screenshot's position.
	AnchorBefore int
	AnchorAfter  int
}

// DefaultOptions returns a forward-leaning first window and a symmetric
// anchor window.
func DefaultOptions() Options {
	return Options{
		SearchBefore: 20,
		SearchAfter:  40,
		AnchorBefore: 10,
		AnchorAfter:  10,
	}
}

// Resolver is read-only after New and safe for concurrent use.
type Resolver struct {
	corpus     *corpus.Corpus
	matcher    *match.Matcher
	recognizer ocr.Recognizer
	opts       Options
	log        *logging.Logger
}

// New binds a corpus, matcher and OCR engine. recognizer may be nil, in which
// case the image operations fail with OCR_NOT_ENABLED.
func New(c *corpus.Corpus, m *match.Matcher, recognizer ocr.Recognizer, opts Options) *Resolver {
	if m == nil {
		m = match.New(match.DefaultConfig())
	}
	opts.SearchBefore = max(opts.SearchBefore, 0)
	opts.SearchAfter = max(opts.SearchAfter, 0)
	opts.AnchorBefore = max(opts.AnchorBefore, 0)
	opts.AnchorAfter = max(opts.AnchorAfter, 0)
	return &Resolver{
		corpus:     c,
		matcher:    m,
		recognizer: recognizer,
		opts:       opts,
		log:        logging.NewLogger("resolve"),
	}
}

// Corpus returns the bound corpus.
func (r *Resolver) Corpus() *corpus.Corpus { return r.corpus }

// Options returns the effective window settings.
func (r *Resolver) Options() Options { return r.opts }

// Locate matches recognized lines against the whole book.
func (r *Resolver) Locate(query []string, hint *corpus.Position) match.Result {
	return r.matcher.Match(query, r.corpus.All(), hint)
}

// LocateImage recognizes the screenshot at path and locates it. OCR and read
// failures come back as a Failed result.
func (r *Resolver) LocateImage(ctx context.Context, path string) match.Result {
	lines, err := r.recognize(ctx, path)
	if err != nil {
		return match.FailedResult(err)
	}
	res := r.Locate(lines, nil)
	r.log.Info("located screenshot", "path", path, "status", res.Status,
		"position", res.Position, "confidence", res.Confidence)
	return res
}

// Delta locates q1 near current and q2 near q1's position, then measures the
// move between them.
func (r *Resolver) Delta(q1, q2 []string, current corpus.Position) DeltaResult {
	return r.delta(q1, nil, q2, nil, current)
}

// DeltaImages recognizes both screenshots and runs Delta. A failed side is
// reported as a Failed result and makes the delta partial; the other side is
// still resolved.
func (r *Resolver) DeltaImages(ctx context.Context, path1, path2 string, current corpus.Position) DeltaResult {
	q1, err1 := r.recognize(ctx, path1)
	q2, err2 := r.recognize(ctx, path2)
	d := r.delta(q1, err1, q2, err2, current)
	r.log.Info("resolved delta", "first", path1, "second", path2, "current", current,
		"direction", d.Direction, "fragments", d.Fragments, "partial", d.Partial)
	return d
}

func (r *Resolver) delta(q1 []string, err1 error, q2 []string, err2 error, current corpus.Position) DeltaResult {
	var d DeltaResult
	if err1 != nil {
		d.First = match.FailedResult(err1)
	} else {
		w := r.corpus.Window(current, r.opts.SearchBefore, r.opts.SearchAfter)
		d.First = r.matcher.Match(q1, w, &current)
	}

	anchor := current
	if d.First.Confident() {
		anchor = d.First.Position
	}
	if err2 != nil {
		d.Second = match.FailedResult(err2)
	} else {
		w := r.corpus.Window(anchor, r.opts.AnchorBefore, r.opts.AnchorAfter)
		d.Second = r.matcher.Match(q2, w, &anchor)
	}

	if !d.First.Confident() || !d.Second.Confident() {
		d.Partial = true
		return d
	}
	d.Fragments = r.corpus.FragmentDistance(d.First.Position, d.Second.Position)
	d.Pages = r.corpus.PageDistance(d.First.Position, d.Second.Position)
	switch {
	case d.Fragments > 0:
		d.Direction = Forward
	case d.Fragments < 0:
		d.Direction = Backward
	default:
		d.Direction = Same
	}
	return d
}

// Shift moves pos by a signed number of fragments in reading order, clamped
// to the book.
func (r *Resolver) Shift(pos corpus.Position, fragments int) corpus.Position {
	return r.corpus.PositionOfOrdinal(r.corpus.FragmentOrdinal(pos) + fragments)
}

func (r *Resolver) recognize(ctx context.Context, path string) ([]string, error) {
	if r.recognizer == nil {
		return nil, errors.NewOCRNotEnabledError(ocr.ErrOCRNotEnabled)
	}
	lines, err := ocr.RecognizeFile(ctx, r.recognizer, path)
	if err != nil {
		r.log.Warn("recognition failed", "path", path, "error", err)
		return nil, err
	}
	return lines, nil
}
