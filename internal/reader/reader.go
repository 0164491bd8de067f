// Package reader loads books as pages of text and tracks the reading
// position within them.
package reader

import "github.com/metcalfc/pagesync/internal/corpus"

// Reader holds the reading position in a book: a page index and the index
// of the text block at the top of the view.
type Reader struct {
	Book   *Book
	Page   int
	Offset int

	CurrentChapter int
}

// NewReader opens b at its first page.
func NewReader(b *Book) *Reader {
	r := &Reader{Book: b}
	r.updateCurrentChapter()
	return r
}

// Position returns the current position as a corpus position.
func (r *Reader) Position() corpus.Position {
	return corpus.Position{Page: PageID(r.Page), Offset: r.Offset}
}

// JumpTo moves to pos, clamped into the book.
func (r *Reader) JumpTo(pos corpus.Position) {
	r.setPage(PageIndex(pos.Page))
	if n := len(r.CurrentPage().Texts); pos.Offset >= n {
		r.Offset = max(n-1, 0)
	} else {
		r.Offset = max(pos.Offset, 0)
	}
}

// CurrentPage returns the page being read.
func (r *Reader) CurrentPage() Page {
	if r.Page >= 0 && r.Page < len(r.Book.Pages) {
		return r.Book.Pages[r.Page]
	}
	return Page{}
}

// NextPage moves to the top of the next page. It reports false at the end.
func (r *Reader) NextPage() bool {
	if r.Page >= len(r.Book.Pages)-1 {
		return false
	}
	r.setPage(r.Page + 1)
	return true
}

// PrevPage moves to the top of the previous page, or the top of this one if
// it is the first.
func (r *Reader) PrevPage() bool {
	if r.Page == 0 {
		moved := r.Offset != 0
		r.Offset = 0
		return moved
	}
	r.setPage(r.Page - 1)
	return true
}

// NextFragment scrolls one text block down, continuing onto the next page.
func (r *Reader) NextFragment() bool {
	if r.Offset < len(r.CurrentPage().Texts)-1 {
		r.Offset++
		return true
	}
	return r.NextPage()
}

// PrevFragment scrolls one text block up, continuing onto the end of the
// previous page.
func (r *Reader) PrevFragment() bool {
	if r.Offset > 0 {
		r.Offset--
		return true
	}
	if r.Page == 0 {
		return false
	}
	r.setPage(r.Page - 1)
	r.Offset = max(len(r.CurrentPage().Texts)-1, 0)
	return true
}

// Progress returns the 1-based page number and the page count.
func (r *Reader) Progress() (current, total int) {
	return r.Page + 1, len(r.Book.Pages)
}

// AtEnd reports whether the last page is showing.
func (r *Reader) AtEnd() bool {
	return r.Page >= len(r.Book.Pages)-1
}

// JumpToChapter moves to the first page of chapter i.
func (r *Reader) JumpToChapter(i int) {
	if i >= 0 && i < len(r.Book.Chapters) {
		r.setPage(r.Book.Chapters[i].PageStart)
	}
}

// CurrentChapterTitle returns the title of the current chapter.
func (r *Reader) CurrentChapterTitle() string {
	if r.CurrentChapter >= 0 && r.CurrentChapter < len(r.Book.Chapters) {
		return r.Book.Chapters[r.CurrentChapter].Title
	}
	return ""
}

func (r *Reader) setPage(p int) {
	r.Page = min(max(p, 0), max(len(r.Book.Pages)-1, 0))
	r.Offset = 0
	r.updateCurrentChapter()
}

// updateCurrentChapter sets CurrentChapter based on Page.
func (r *Reader) updateCurrentChapter() {
	for i := len(r.Book.Chapters) - 1; i >= 0; i-- {
		if r.Page >= r.Book.Chapters[i].PageStart {
			r.CurrentChapter = i
			return
		}
	}
	r.CurrentChapter = 0
}
