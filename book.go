package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/metcalfc/pagesync/internal/config"
	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/gateway"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/match"
	"github.com/metcalfc/pagesync/internal/ocr"
	"github.com/metcalfc/pagesync/internal/reader"
	"github.com/metcalfc/pagesync/internal/resolve"
	"github.com/metcalfc/pagesync/internal/state"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var logger = logging.NewLogger("pagesync")

// loadConfig reads .env, the config file and the environment.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	return config.Load(path)
}

// newRecognizer starts the OCR engine. Without one, screenshot requests
// complete with OCR_NOT_ENABLED and the reader still works.
func newRecognizer(cfg *config.Config) (ocr.Recognizer, func()) {
	t, err := ocr.New(cfg.OCROptions())
	if err != nil {
		logger.Warn("screenshot matching unavailable", "error", err)
		return nil, func() {}
	}
	return t, func() {
		if err := t.Close(); err != nil {
			logger.Warn("failed to close OCR engine", "error", err)
		}
	}
}

// openBook loads the book at path and builds its resolver.
func openBook(cfg *config.Config, path string, rec ocr.Recognizer) (*reader.Book, *resolve.Resolver, error) {
	book, err := reader.LoadBook(path, reader.LoadOptions{ParagraphsPerPage: cfg.Reader.ParagraphsPerPage})
	if err != nil {
		return nil, nil, err
	}
	c, err := book.Corpus()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index %s: %w", path, err)
	}
	res := resolve.New(c, match.New(cfg.MatcherConfig()), rec, cfg.ResolveOptions())
	return book, res, nil
}

// positions saves and restores the reading position of one book. The zero
// value does nothing.
type positions struct {
	store *state.StateStore
	book  state.Book
}

func openPositions(path, title string) positions {
	store, err := state.NewStateStore()
	if err != nil {
		logger.Warn("reading positions will not be saved", "error", err)
		return positions{}
	}
	hash, err := state.ComputeHash(path)
	if err != nil {
		logger.Warn("reading positions will not be saved", "path", path, "error", err)
		return positions{}
	}
	return positions{store: store, book: state.Book{Hash: hash, Path: path, Title: title}}
}

func (p positions) restore() (corpus.Position, bool) {
	if p.store == nil {
		return corpus.Position{}, false
	}
	return p.store.GetPosition(p.book.Hash)
}

func (p positions) save(pos corpus.Position) {
	if p.store == nil {
		return
	}
	if err := p.store.SetPosition(p.book, pos); err != nil {
		logger.Warn("failed to save position", "path", p.book.Path, "error", err)
	}
}

func (p positions) clear() {
	if p.store == nil {
		return
	}
	if err := p.store.Clear(p.book.Hash); err != nil {
		logger.Warn("failed to clear position", "path", p.book.Path, "error", err)
	}
}

// printRecent lists recently read books, newest first. It reports whether
// there were any.
func printRecent(out io.Writer, store *state.StateStore, n int) bool {
	recent := store.Recent(n)
	if len(recent) == 0 {
		return false
	}
	fmt.Fprintln(out, "Recently read:")
	for _, r := range recent {
		title := r.Title
		if title == "" {
			title = r.Path
		}
		fmt.Fprintf(out, "  %-30s %s  (%s)\n", title, describePosition(r.Position()), r.Path)
	}
	return true
}

// parseDelta splits the -delta argument "first.png,second.png".
func parseDelta(arg string) (string, string, error) {
	first, second, ok := strings.Cut(arg, ",")
	first, second = strings.TrimSpace(first), strings.TrimSpace(second)
	if !ok || first == "" || second == "" || strings.Contains(second, ",") {
		return "", "", fmt.Errorf("-delta wants two screenshots separated by a comma, got %q", arg)
	}
	return first, second, nil
}

// runHeadless resolves one request through a gateway, prints the outcome to
// out and reports whether it was confident.
func runHeadless(ctx context.Context, out io.Writer, e gateway.Engine, req gateway.Request, opts gateway.Options) (bool, error) {
	sink := gateway.NewChanSink(1)
	defer sink.Close()

	g := gateway.New(sink, opts)
	g.SetBook(e)
	tag := g.Submit(req)

	var c gateway.Completion
	select {
	case c = <-sink.C():
	case <-ctx.Done():
		return false, ctx.Err()
	}
	g.Wait()

	if c.RequestTag() != tag {
		return false, fmt.Errorf("unexpected completion for request %s", c.RequestTag().ID)
	}
	switch c := c.(type) {
	case gateway.PositionMatchCompleted:
		fmt.Fprintln(out, describeResult(c.Result))
		return c.Result.Confident(), nil
	case gateway.DeltaMatchCompleted:
		fmt.Fprintln(out, describeDelta(c.Result))
		return c.Result.Confident(), nil
	}
	return false, fmt.Errorf("unexpected completion %T", c)
}

func describePosition(p corpus.Position) string {
	return fmt.Sprintf("page %d, paragraph %d", p.Page, p.Offset+1)
}

// describeResult is a one-line summary of a locate result.
func describeResult(r match.Result) string {
	switch r.Status {
	case match.Matched:
		return fmt.Sprintf("found at %s (confidence %.2f)", describePosition(r.Position), r.Confidence)
	case match.Ambiguous:
		return fmt.Sprintf("ambiguous: best guess %s (confidence %.2f, runner-up %.2f)",
			describePosition(r.Position), r.Confidence, r.RunnerUp)
	case match.Failed:
		return fmt.Sprintf("failed: %v", r.Err)
	default:
		return fmt.Sprintf("no match (best confidence %.2f)", r.Confidence)
	}
}

// describeDelta is a one-line summary of a delta result.
func describeDelta(d resolve.DeltaResult) string {
	if d.Partial {
		return fmt.Sprintf("incomplete: first screenshot %s; second screenshot %s",
			describeResult(d.First), describeResult(d.Second))
	}
	switch d.Direction {
	case resolve.Same:
		return fmt.Sprintf("no movement (%s)", describePosition(d.Second.Position))
	default:
		return fmt.Sprintf("moved %s %d pages, %d paragraphs (now %s)",
			d.Direction, d.PageMagnitude(), d.FragmentMagnitude(), describePosition(d.Second.Position))
	}
}
