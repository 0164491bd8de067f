package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// TOC reads the NCX table of contents and maps each entry to the page of
// its spine item.
func (f *EPUBFormat) TOC(filename string, pages []Page) ([]TOCEntry, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	book := rc.Rootfiles[0]

	ncxData, err := findAndReadNCX(filename, book)
	if err != nil {
		return nil, err
	}

	var toc ncx
	if err := xml.Unmarshal(ncxData, &toc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}

	spineMap := buildSpineMap(book, pages)
	entries := flattenNavPoints(toc.NavMap.NavPoints, spineMap, 0)

	return entries, nil
}

// buildTOCHrefMap parses the NCX and returns a map of href to title
func buildTOCHrefMap(filename string, book *epub.Rootfile) map[string]string {
	result := make(map[string]string)

	ncxData, err := findAndReadNCX(filename, book)
	if err != nil {
		return result
	}

	var toc ncx
	if err := xml.Unmarshal(ncxData, &toc); err != nil {
		return result
	}

	var extract func(points []navPoint)
	extract = func(points []navPoint) {
		for _, np := range points {
			href := np.Content.Src
			title := strings.TrimSpace(np.Label.Text)

			if _, exists := result[href]; !exists {
				result[href] = title
			}
			if idx := strings.Index(href, "#"); idx != -1 {
				baseHref := href[:idx]
				if _, exists := result[baseHref]; !exists {
					result[baseHref] = title
				}
			}
			baseHref := path.Base(href)
			if idx := strings.Index(baseHref, "#"); idx != -1 {
				baseHref = baseHref[:idx]
			}
			if _, exists := result[baseHref]; !exists {
				result[baseHref] = title
			}

			extract(np.Children)
		}
	}
	extract(toc.NavMap.NavPoints)

	return result
}

func findAndReadNCX(filename string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}

	if ncxPath == "" {
		return nil, fmt.Errorf("no NCX file found in EPUB")
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}

	return nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}

type spineInfo struct {
	page    int
	preview string
}

// buildSpineMap maps spine hrefs, full and base name, to their page index
// and a short preview of the page text.
func buildSpineMap(book *epub.Rootfile, pages []Page) map[string]spineInfo {
	m := make(map[string]spineInfo)
	for i, item := range spineItems(book) {
		if item.HREF == "" || i >= len(pages) {
			continue
		}
		info := spineInfo{page: i, preview: pagePreview(pages[i])}
		m[item.HREF] = info
		m[path.Base(item.HREF)] = info
	}
	return m
}

// pagePreview returns the first ten words of a page.
func pagePreview(p Page) string {
	words := strings.Fields(strings.Join(p.Texts, " "))
	if len(words) == 0 {
		return ""
	}
	if len(words) > 10 {
		return strings.Join(words[:10], " ") + "..."
	}
	return strings.Join(words, " ")
}

func flattenNavPoints(points []navPoint, spineMap map[string]spineInfo, level int) []TOCEntry {
	var entries []TOCEntry

	for _, np := range points {
		href := np.Content.Src
		baseHref := href
		if idx := strings.Index(href, "#"); idx != -1 {
			baseHref = href[:idx]
		}

		page := -1
		preview := ""
		if info, ok := spineMap[baseHref]; ok {
			page = info.page
			preview = info.preview
		} else if info, ok := spineMap[path.Base(baseHref)]; ok {
			page = info.page
			preview = info.preview
		}

		if page >= 0 {
			entries = append(entries, TOCEntry{
				Title:   strings.TrimSpace(np.Label.Text),
				Preview: preview,
				Page:    page,
				Level:   level,
			})
		}
		if len(np.Children) > 0 {
			children := flattenNavPoints(np.Children, spineMap, level+1)
			entries = append(entries, children...)
		}
	}

	return entries
}
