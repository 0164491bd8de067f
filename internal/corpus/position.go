package corpus

import "fmt"

// Position locates a fragment: the page and the fragment offset in it.
type Position struct {
	Page   PageID
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("page %d, fragment %d", p.Page, p.Offset)
}

// Compare orders positions by page, then offset.
func Compare(a, b Position) int {
	switch {
	case a.Page < b.Page:
		return -1
	case a.Page > b.Page:
		return 1
	case a.Offset < b.Offset:
		return -1
	case a.Offset > b.Offset:
		return 1
	}
	return 0
}
