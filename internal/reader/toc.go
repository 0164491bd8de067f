package reader

// TOCEntry is one table of contents entry. Page is a page index in the
// loaded book.
type TOCEntry struct {
	Title   string
	Preview string
	Page    int
	Level   int
}

// Chapter is a run of pages, PageEnd inclusive.
type Chapter struct {
	Title     string
	PageStart int
	PageEnd   int
}

// TOCProvider is an optional interface for formats that carry a table of
// contents. pages are the pages Extract returned for the same file.
type TOCProvider interface {
	TOC(filename string, pages []Page) ([]TOCEntry, error)
}

// buildChapters turns top-level TOC entries into chapters. Without a TOC,
// each run of pages sharing a title becomes a chapter.
func buildChapters(toc []TOCEntry, pages []Page) []Chapter {
	if len(pages) == 0 {
		return nil
	}

	var chapters []Chapter
	add := func(title string, start int) {
		if n := len(chapters); n > 0 {
			if chapters[n-1].PageStart == start {
				return
			}
			chapters[n-1].PageEnd = start - 1
		}
		chapters = append(chapters, Chapter{Title: title, PageStart: start})
	}

	minLevel := -1
	for _, e := range toc {
		if minLevel < 0 || e.Level < minLevel {
			minLevel = e.Level
		}
	}
	for _, e := range toc {
		if e.Level != minLevel || e.Page < 0 || e.Page >= len(pages) {
			continue
		}
		if n := len(chapters); n > 0 && e.Page < chapters[n-1].PageStart {
			continue
		}
		add(e.Title, e.Page)
	}

	if len(chapters) == 0 {
		for i, p := range pages {
			if i == 0 || p.Title != pages[i-1].Title {
				add(p.Title, i)
			}
		}
	}
	if chapters[0].PageStart > 0 {
		chapters = append([]Chapter{{Title: "Front matter", PageStart: 0, PageEnd: chapters[0].PageStart - 1}}, chapters...)
	}
	chapters[len(chapters)-1].PageEnd = len(pages) - 1

	for i := range chapters {
		if chapters[i].Title == "" {
			chapters[i].Title = "Untitled"
		}
	}
	return chapters
}
