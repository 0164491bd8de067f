package corpus

import (
	stderrors "errors"
	"testing"

	"github.com/metcalfc/pagesync/internal/errors"
)

func sampleSources() []PageSource {
	return []PageSource{
		{ID: 1, Texts: []string{"Chapter One", "It was a bright cold day in April."}},
		{ID: 2, Texts: []string{}},
		{ID: 3, Texts: []string{"The clocks were striking thirteen.", "Winston Smith slipped quickly."}},
		{ID: 5, Texts: []string{"Through the glass doors of Victory Mansions."}},
	}
}

func mustBuild(t *testing.T, src []PageSource) *Corpus {
	t.Helper()
	c, err := Build(src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func TestBuildCounts(t *testing.T) {
	c := mustBuild(t, sampleSources())

	if c.PageCount() != 4 {
		t.Errorf("PageCount = %d, want 4 (empty pages are kept)", c.PageCount())
	}
	if c.FragmentCount() != 5 {
		t.Errorf("FragmentCount = %d, want 5", c.FragmentCount())
	}
	// 2 + 8 + 5 + 4 + 7
	if c.TokenCount() != 26 {
		t.Errorf("TokenCount = %d, want 26", c.TokenCount())
	}
	if got := c.PageAt(1); got.ID != 2 || len(got.Fragments) != 0 {
		t.Errorf("PageAt(1) = %+v, want empty page 2", got)
	}
}

func TestBuildRejectsUnorderedPages(t *testing.T) {
	tests := []struct {
		name string
		src  []PageSource
	}{
		{"duplicate", []PageSource{{ID: 1}, {ID: 1}}},
		{"decreasing", []PageSource{{ID: 4}, {ID: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !stderrors.Is(err, &errors.ResolveError{Code: errors.ErrorCorpusInvalid}) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	c := mustBuild(t, nil)
	if c.PageCount() != 0 || c.TokenCount() != 0 {
		t.Error("expected empty corpus")
	}
	if !c.All().Empty() {
		t.Error("All() of empty corpus should be empty")
	}
	if !c.Window(Position{Page: 3}, 2, 2).Empty() {
		t.Error("Window of empty corpus should be empty")
	}
	if c.FragmentDistance(Position{Page: 1}, Position{Page: 9}) != 0 {
		t.Error("distance in empty corpus should be 0")
	}
}

func TestFragmentsInOrder(t *testing.T) {
	c := mustBuild(t, sampleSources())

	var got []Position
	for f := range c.Fragments() {
		got = append(got, Position{Page: f.Page, Offset: f.Offset})
	}
	want := []Position{{1, 0}, {1, 1}, {3, 0}, {3, 1}, {5, 0}}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d at %v, want %v", i, got[i], want[i])
		}
		if i > 0 && Compare(got[i-1], got[i]) >= 0 {
			t.Errorf("fragments out of order at %d", i)
		}
	}

	// early stop
	n := 0
	for range c.Fragments() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iteration did not stop early")
	}
}

func TestFragmentCanonicalForm(t *testing.T) {
	c := mustBuild(t, sampleSources())
	for f := range c.Fragments() {
		if f.Page == 1 && f.Offset == 0 && f.Text.Canonical != "chapter one" {
			t.Errorf("canonical = %q", f.Text.Canonical)
		}
	}
}

func TestWindow(t *testing.T) {
	c := mustBuild(t, sampleSources())

	tests := []struct {
		name          string
		around        Position
		before, after int
		first, last   PageID
	}{
		{"center", Position{Page: 3}, 1, 1, 2, 5},
		{"forward only", Position{Page: 2}, 0, 1, 2, 3},
		{"clamped low", Position{Page: 1}, 5, 0, 1, 1},
		{"clamped high", Position{Page: 5}, 0, 9, 5, 5},
		{"missing page snaps forward", Position{Page: 4}, 0, 0, 5, 5},
		{"beyond end", Position{Page: 99}, 1, 1, 3, 5},
		{"negative radius", Position{Page: 3}, -2, -2, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := c.Window(tt.around, tt.before, tt.after)
			first, ok := w.FirstPage()
			if !ok {
				t.Fatal("window has no pages")
			}
			last, _ := w.LastPage()
			if first != tt.first || last != tt.last {
				t.Errorf("window pages = [%d, %d], want [%d, %d]", first, last, tt.first, tt.last)
			}
		})
	}
}

func TestWindowTokensAndOccurrences(t *testing.T) {
	c := mustBuild(t, sampleSources())
	the, ok := c.Term("the")
	if !ok {
		t.Fatal("term 'the' missing")
	}

	all := c.All().Occurrences(the)
	if len(all) != 2 {
		t.Fatalf("'the' occurs %d times, want 2", len(all))
	}

	w := c.Window(Position{Page: 5}, 0, 0)
	in := w.Occurrences(the)
	if len(in) != 1 {
		t.Fatalf("'the' occurs %d times in page 5 window, want 1", len(in))
	}
	if pos := c.PositionAt(in[0]); pos != (Position{Page: 5, Offset: 0}) {
		t.Errorf("PositionAt = %v", pos)
	}
	if w.Len() != 7 {
		t.Errorf("window Len = %d, want 7", w.Len())
	}

	var frags int
	for range w.Fragments() {
		frags++
	}
	if frags != 1 {
		t.Errorf("window yielded %d fragments, want 1", frags)
	}
}

func TestDistances(t *testing.T) {
	c := mustBuild(t, sampleSources())

	a := Position{Page: 1, Offset: 1}
	b := Position{Page: 5, Offset: 0}
	if d := c.FragmentDistance(a, b); d != 3 {
		t.Errorf("FragmentDistance = %d, want 3", d)
	}
	if d := c.FragmentDistance(b, a); d != -3 {
		t.Errorf("FragmentDistance reversed = %d, want -3", d)
	}
	if d := c.PageDistance(a, b); d != 3 {
		t.Errorf("PageDistance = %d, want 3", d)
	}
	if d := c.FragmentDistance(a, a); d != 0 {
		t.Errorf("FragmentDistance same = %d", d)
	}
}

func TestTokenIndex(t *testing.T) {
	c := mustBuild(t, sampleSources())

	tests := []struct {
		pos  Position
		want int
	}{
		{Position{Page: 1, Offset: 0}, 0},
		{Position{Page: 1, Offset: 1}, 2},
		{Position{Page: 2, Offset: 0}, 10},
		{Position{Page: 3, Offset: 1}, 15},
		{Position{Page: 4, Offset: 0}, 19},
		{Position{Page: 99, Offset: 0}, 26},
	}
	for _, tt := range tests {
		if got := c.TokenIndex(tt.pos); got != tt.want {
			t.Errorf("TokenIndex(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Position
		want int
	}{
		{Position{1, 0}, Position{1, 0}, 0},
		{Position{1, 5}, Position{2, 0}, -1},
		{Position{3, 0}, Position{2, 9}, 1},
		{Position{2, 1}, Position{2, 0}, 1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPositionOfOrdinal(t *testing.T) {
	c := mustBuild(t, sampleSources())
	tests := []struct {
		ord  int
		want Position
	}{
		{-3, Position{Page: 1, Offset: 0}},
		{0, Position{Page: 1, Offset: 0}},
		{1, Position{Page: 1, Offset: 1}},
		{2, Position{Page: 3, Offset: 0}},
		{3, Position{Page: 3, Offset: 1}},
		{4, Position{Page: 5, Offset: 0}},
		{40, Position{Page: 5, Offset: 0}},
	}
	for _, tt := range tests {
		got := c.PositionOfOrdinal(tt.ord)
		if got != tt.want {
			t.Errorf("PositionOfOrdinal(%d) = %v, want %v", tt.ord, got, tt.want)
		}
		if tt.ord >= 0 && tt.ord < c.FragmentCount() && c.FragmentOrdinal(got) != tt.ord {
			t.Errorf("FragmentOrdinal(PositionOfOrdinal(%d)) = %d", tt.ord, c.FragmentOrdinal(got))
		}
	}

	empty := mustBuild(t, []PageSource{{ID: 9}})
	if got := empty.PositionOfOrdinal(5); got != (Position{Page: 9}) {
		t.Errorf("empty book PositionOfOrdinal = %v", got)
	}
}
