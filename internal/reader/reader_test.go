package reader

import (
	"testing"

	"github.com/metcalfc/pagesync/internal/corpus"
)

func testBook() *Book {
	pages := []Page{
		{Title: "One", Texts: []string{"a", "b", "c"}},
		{Title: "One", Texts: []string{"d"}},
		{Title: "Two"},
		{Title: "Two", Texts: []string{"e", "f"}},
	}
	return &Book{Pages: pages, Chapters: buildChapters(nil, pages)}
}

func TestReaderNavigation(t *testing.T) {
	r := NewReader(testBook())

	if r.PrevFragment() {
		t.Error("PrevFragment at start moved")
	}
	steps := []struct {
		page, offset int
	}{
		{0, 1}, {0, 2}, {1, 0}, {2, 0}, {3, 0}, {3, 1},
	}
	for i, want := range steps {
		if !r.NextFragment() {
			t.Fatalf("step %d: NextFragment stopped early", i)
		}
		if r.Page != want.page || r.Offset != want.offset {
			t.Fatalf("step %d: at %d/%d, want %d/%d", i, r.Page, r.Offset, want.page, want.offset)
		}
	}
	if r.NextFragment() || !r.AtEnd() {
		t.Error("expected end of book")
	}

	// an empty page still takes a step
	r.PrevFragment()
	r.PrevFragment()
	if r.Page != 2 || r.Offset != 0 {
		t.Fatalf("at %d/%d, want 2/0", r.Page, r.Offset)
	}
	r.PrevFragment()
	if r.Page != 1 || r.Offset != 0 {
		t.Fatalf("at %d/%d, want 1/0", r.Page, r.Offset)
	}
	r.PrevFragment()
	if r.Page != 0 || r.Offset != 2 {
		t.Fatalf("at %d/%d, want 0/2", r.Page, r.Offset)
	}
}

func TestReaderPages(t *testing.T) {
	r := NewReader(testBook())
	r.Offset = 2

	if !r.PrevPage() || r.Offset != 0 {
		t.Error("PrevPage on first page should return to its top")
	}
	if r.PrevPage() {
		t.Error("PrevPage at top of book moved")
	}
	for r.NextPage() {
	}
	if cur, total := r.Progress(); cur != 4 || total != 4 {
		t.Errorf("progress = %d/%d", cur, total)
	}
	if r.CurrentChapterTitle() != "Two" {
		t.Errorf("chapter = %q", r.CurrentChapterTitle())
	}
}

func TestReaderJumpTo(t *testing.T) {
	tests := []struct {
		pos          corpus.Position
		page, offset int
	}{
		{corpus.Position{Page: 1, Offset: 1}, 0, 1},
		{corpus.Position{Page: 1, Offset: 9}, 0, 2},
		{corpus.Position{Page: 3, Offset: 4}, 2, 0},
		{corpus.Position{Page: 40}, 3, 0},
		{corpus.Position{Page: 0, Offset: -2}, 0, 0},
	}
	for _, tt := range tests {
		r := NewReader(testBook())
		r.JumpTo(tt.pos)
		if r.Page != tt.page || r.Offset != tt.offset {
			t.Errorf("JumpTo(%+v) = %d/%d, want %d/%d", tt.pos, r.Page, r.Offset, tt.page, tt.offset)
		}
		if got := r.Position(); got.Page != PageID(r.Page) || got.Offset != r.Offset {
			t.Errorf("Position() = %+v", got)
		}
	}
}

func TestReaderChapters(t *testing.T) {
	r := NewReader(testBook())
	if r.CurrentChapterTitle() != "One" {
		t.Errorf("chapter = %q", r.CurrentChapterTitle())
	}
	r.JumpToChapter(1)
	if r.Page != 2 || r.CurrentChapter != 1 {
		t.Errorf("JumpToChapter(1) at page %d chapter %d", r.Page, r.CurrentChapter)
	}
	r.JumpToChapter(7)
	if r.Page != 2 {
		t.Errorf("out of range chapter moved to page %d", r.Page)
	}
}
