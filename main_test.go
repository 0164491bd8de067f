//go:build !gui

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/metcalfc/pagesync/internal/config"
	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/gateway"
	"github.com/metcalfc/pagesync/internal/match"
	"github.com/metcalfc/pagesync/internal/ocr"
	"github.com/metcalfc/pagesync/internal/reader"
	"github.com/metcalfc/pagesync/internal/resolve"
	"github.com/metcalfc/pagesync/internal/state"
)

var syllables = []string{"ka", "lo", "mi", "ren", "tus", "va", "qe", "dor", "sil", "bru", "xan", "pho", "gle", "niv", "zor", "hep"}

// paragraphs returns n ten-word paragraphs of pseudo-words.
func paragraphs(n int) []string {
	var seq uint32 = 5
	out := make([]string, n)
	for i := range out {
		words := make([]string, 10)
		for w := range words {
			seq = seq*1664525 + 1013904223
			v := seq >> 8
			var b strings.Builder
			for range 2 + int(v%2) {
				b.WriteString(syllables[v%uint32(len(syllables))])
				v = v/uint32(len(syllables))*2654435761 + 1013904223
			}
			words[w] = b.String()
		}
		out[i] = strings.Join(words, " ") + "."
	}
	return out
}

// textRecognizer treats image bytes as already recognized text.
func textRecognizer() ocr.Recognizer {
	return ocr.RecognizerFunc(func(_ context.Context, image []byte) ([]string, error) {
		return ocr.SplitLines(string(image)), nil
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// openTestBook writes 40 paragraphs as a text book of ten pages.
func openTestBook(t *testing.T) ([]string, *reader.Book, *resolve.Resolver) {
	t.Helper()
	paras := paragraphs(40)
	path := writeFile(t, "book.txt", strings.Join(paras, "\n\n"))

	cfg := config.Default()
	cfg.Reader.ParagraphsPerPage = 4
	book, res, err := openBook(&cfg, path, textRecognizer())
	if err != nil {
		t.Fatalf("openBook: %v", err)
	}
	if len(book.Pages) != 10 {
		t.Fatalf("got %d pages, want 10", len(book.Pages))
	}
	return paras, book, res
}

// newTestModel returns a model whose completions arrive on the returned
// channel instead of through a tea.Program.
func newTestModel(t *testing.T) ([]string, model, <-chan gateway.Completion) {
	t.Helper()
	paras, book, res := openTestBook(t)
	ch := make(chan gateway.Completion, 4)
	gw := gateway.New(gateway.SinkFunc(func(c gateway.Completion) { ch <- c }), gateway.DefaultOptions())
	gw.SetBook(res)
	return paras, newModel(book, res, gw, positions{}), ch
}

func receive(t *testing.T, ch <-chan gateway.Completion) gateway.Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("no completion delivered")
		return nil
	}
}

func press(m model, keys ...tea.KeyMsg) model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestParseDelta(t *testing.T) {
	tests := []struct {
		arg       string
		a, b      string
		expectErr bool
	}{
		{"a.png,b.png", "a.png", "b.png", false},
		{" a.png , b.png ", "a.png", "b.png", false},
		{"a.png", "", "", true},
		{"a.png,", "", "", true},
		{",b.png", "", "", true},
		{"a.png,b.png,c.png", "", "", true},
	}
	for _, tt := range tests {
		a, b, err := parseDelta(tt.arg)
		if (err != nil) != tt.expectErr {
			t.Errorf("parseDelta(%q) error = %v, expectErr %v", tt.arg, err, tt.expectErr)
			continue
		}
		if a != tt.a || b != tt.b {
			t.Errorf("parseDelta(%q) = %q, %q", tt.arg, a, b)
		}
	}
}

func TestDescribeResult(t *testing.T) {
	tests := []struct {
		name   string
		result match.Result
		want   string
	}{
		{
			name:   "matched",
			result: match.Result{Status: match.Matched, Position: corpus.Position{Page: 4, Offset: 2}, Confidence: 0.9},
			want:   "found at page 4, paragraph 3 (confidence 0.90)",
		},
		{
			name:   "ambiguous",
			result: match.Result{Status: match.Ambiguous, Position: corpus.Position{Page: 1}, Confidence: 0.8, RunnerUp: 0.75},
			want:   "ambiguous: best guess page 1, paragraph 1 (confidence 0.80, runner-up 0.75)",
		},
		{
			name:   "no match",
			result: match.Result{Confidence: 0.2},
			want:   "no match (best confidence 0.20)",
		},
		{
			name:   "failed",
			result: match.FailedResult(ocr.ErrOCRNotEnabled),
			want:   "failed: " + ocr.ErrOCRNotEnabled.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeResult(tt.result); got != tt.want {
				t.Errorf("describeResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeDelta(t *testing.T) {
	second := match.Result{Status: match.Matched, Position: corpus.Position{Page: 7, Offset: 1}}
	moved := resolve.DeltaResult{Second: second, Direction: resolve.Backward, Pages: -2, Fragments: -9}
	if got, want := describeDelta(moved), "moved backward 2 pages, 9 paragraphs (now page 7, paragraph 2)"; got != want {
		t.Errorf("describeDelta() = %q, want %q", got, want)
	}

	still := resolve.DeltaResult{Second: second, Direction: resolve.Same}
	if got := describeDelta(still); !strings.HasPrefix(got, "no movement") {
		t.Errorf("describeDelta() = %q", got)
	}

	partial := resolve.DeltaResult{First: second, Second: match.Result{}, Partial: true}
	if got := describeDelta(partial); !strings.Contains(got, "second screenshot no match") {
		t.Errorf("describeDelta() = %q", got)
	}
}

func TestRunHeadlessLocate(t *testing.T) {
	paras, _, res := openTestBook(t)
	shot := writeFile(t, "shot.png", paras[21]+"\n"+paras[22])

	var out bytes.Buffer
	ok, err := runHeadless(context.Background(), &out, res, gateway.PositionMatch{ImagePath: shot}, gateway.DefaultOptions())
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}
	if !ok {
		t.Fatalf("expected confident match, got %q", out.String())
	}
	if !strings.Contains(out.String(), "page 6, paragraph 2") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunHeadlessDelta(t *testing.T) {
	paras, _, res := openTestBook(t)
	first := writeFile(t, "a.png", paras[8]+"\n"+paras[9])
	second := writeFile(t, "b.png", paras[20]+"\n"+paras[21])

	var out bytes.Buffer
	req := gateway.DeltaMatch{Image1: first, Image2: second, Current: corpus.Position{Page: 3}}
	ok, err := runHeadless(context.Background(), &out, res, req, gateway.DefaultOptions())
	if err != nil || !ok {
		t.Fatalf("runHeadless = %v, %v: %q", ok, err, out.String())
	}
	if !strings.Contains(out.String(), "moved forward 3 pages, 12 paragraphs") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunHeadlessNotConfident(t *testing.T) {
	_, _, res := openTestBook(t)

	var out bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.png")
	ok, err := runHeadless(context.Background(), &out, res, gateway.PositionMatch{ImagePath: missing}, gateway.DefaultOptions())
	if err != nil {
		t.Fatalf("runHeadless: %v", err)
	}
	if ok || !strings.HasPrefix(out.String(), "failed:") {
		t.Errorf("ok = %v, output = %q", ok, out.String())
	}
}

func TestModelLocate(t *testing.T) {
	paras, m, ch := newTestModel(t)
	shot := writeFile(t, "shot.png", paras[29]+"\n"+paras[30])

	m = press(m, runes("o"))
	if m.mode != modePrompt || m.prompt != promptLocate {
		t.Fatalf("mode = %v, prompt = %v", m.mode, m.prompt)
	}
	m.input.SetValue(shot)
	m = press(m, enter)
	if m.mode != modeReading || len(m.pending) != 1 {
		t.Fatalf("mode = %v, pending = %d", m.mode, len(m.pending))
	}

	next, _ := m.Update(receive(t, ch))
	m = next.(model)
	if m.Page != 7 || m.Offset != 1 {
		t.Errorf("at page %d offset %d, want 7/1", m.Page, m.Offset)
	}
	if len(m.pending) != 0 || !strings.HasPrefix(m.status, "locate: found") {
		t.Errorf("pending = %d, status = %q", len(m.pending), m.status)
	}
}

func TestModelDelta(t *testing.T) {
	paras, m, ch := newTestModel(t)
	m.JumpTo(corpus.Position{Page: 3})
	first := writeFile(t, "a.png", paras[8]+"\n"+paras[9])
	second := writeFile(t, "b.png", paras[20]+"\n"+paras[21])

	m = press(m, runes("d"))
	m.input.SetValue(first)
	m = press(m, enter)
	if m.prompt != promptDeltaSecond || m.firstShot != first {
		t.Fatalf("prompt = %v, first = %q", m.prompt, m.firstShot)
	}
	m.input.SetValue(second)
	m = press(m, enter)

	c := receive(t, ch)
	if d, ok := c.(gateway.DeltaMatchCompleted); !ok || d.Result.Fragments != 12 {
		t.Fatalf("completion = %+v", c)
	}
	next, _ := m.Update(c)
	m = next.(model)
	if m.Page != 5 || m.Offset != 0 {
		t.Errorf("at page %d offset %d, want 5/0", m.Page, m.Offset)
	}
}

func TestModelIgnoresStaleCompletion(t *testing.T) {
	paras, m, ch := newTestModel(t)
	shot := writeFile(t, "shot.png", paras[29]+"\n"+paras[30])

	m = press(m, runes("o"))
	m.input.SetValue(shot)
	m = press(m, enter)
	c := receive(t, ch)

	// the book is reloaded before the completion is handled
	m.gw.SetBook(m.resolver)
	next, _ := m.Update(c)
	m = next.(model)
	if m.Page != 0 || m.Offset != 0 {
		t.Errorf("stale completion moved to %d/%d", m.Page, m.Offset)
	}
	if !strings.Contains(m.status, "earlier version") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModelPromptCancel(t *testing.T) {
	_, m, _ := newTestModel(t)

	m = press(m, runes("d"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeReading || m.status != "cancelled" {
		t.Errorf("mode = %v, status = %q", m.mode, m.status)
	}
	m = press(m, runes("o"), enter)
	if m.mode != modeReading || len(m.pending) != 0 {
		t.Errorf("empty path submitted: mode = %v, pending = %d", m.mode, len(m.pending))
	}
}

func TestModelNavigation(t *testing.T) {
	_, m, _ := newTestModel(t)

	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	if m.Page != 0 || m.Offset != 2 {
		t.Errorf("at %d/%d, want 0/2", m.Page, m.Offset)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	if m.Page != 2 || m.Offset != 0 {
		t.Errorf("at %d/%d, want 2/0", m.Page, m.Offset)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.Page != 1 || m.Offset != 3 {
		t.Errorf("at %d/%d, want 1/3", m.Page, m.Offset)
	}
	if !strings.Contains(m.View(), "Page 2/10") {
		t.Errorf("view missing page status:\n%s", m.View())
	}

	next, cmd := m.Update(runes("q"))
	if cmd == nil || !next.(model).quitting {
		t.Error("q did not quit")
	}
}

func TestModelChapters(t *testing.T) {
	_, m, _ := newTestModel(t)
	m.Book.Chapters = []reader.Chapter{
		{Title: "One", PageStart: 0, PageEnd: 4},
		{Title: "Two", PageStart: 5, PageEnd: 9},
	}

	m = press(m, runes("t"))
	if m.mode != modeChapters {
		t.Fatalf("mode = %v", m.mode)
	}
	if !strings.Contains(m.View(), "Two (p. 6)") {
		t.Errorf("chapter list missing:\n%s", m.View())
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyDown}, enter)
	if m.mode != modeReading || m.Page != 5 || m.CurrentChapterTitle() != "Two" {
		t.Errorf("mode = %v, page = %d, chapter = %q", m.mode, m.Page, m.CurrentChapterTitle())
	}
}

func TestPrintRecent(t *testing.T) {
	store, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if printRecent(&out, store, 5) || out.Len() != 0 {
		t.Errorf("empty store printed %q", out.String())
	}

	store.SetPosition(state.Book{Hash: "h1", Path: "/books/a.epub", Title: "A Book"}, corpus.Position{Page: 3, Offset: 1})
	if !printRecent(&out, store, 5) {
		t.Fatal("expected recents")
	}
	if !strings.Contains(out.String(), "A Book") || !strings.Contains(out.String(), "page 3, paragraph 2") {
		t.Errorf("output = %q", out.String())
	}
}
