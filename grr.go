//go:build gui

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/gateway"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/reader"
	"github.com/metcalfc/pagesync/internal/resolve"
	"github.com/metcalfc/pagesync/internal/state"
)

type model struct {
	*reader.Reader
	resolver   *resolve.Resolver
	gw         *gateway.Gateway
	positions  positions
	tocVisible bool

	// pending maps in-flight requests to the position they were issued at.
	pending map[gateway.RequestID]corpus.Position
	status  string
}

func newModel(book *reader.Book, res *resolve.Resolver, gw *gateway.Gateway, pos positions) *model {
	return &model{
		Reader:    reader.NewReader(book),
		resolver:  res,
		gw:        gw,
		positions: pos,
		pending:   make(map[gateway.RequestID]corpus.Position),
	}
}

func (m *model) submit(req gateway.Request) {
	tag := m.gw.Submit(req)
	m.pending[tag.ID] = m.Position()
	m.status = "resolving..."
}

// complete applies a completion. It runs on the fyne main goroutine.
func (m *model) complete(c gateway.Completion) {
	tag := c.RequestTag()
	base, ok := m.pending[tag.ID]
	delete(m.pending, tag.ID)
	if !ok || !m.gw.IsCurrent(tag) {
		m.status = "ignored a result for an earlier version of the book"
		return
	}

	switch c := c.(type) {
	case gateway.PositionMatchCompleted:
		m.status = "Locate: " + describeResult(c.Result)
		if c.Result.Confident() {
			m.JumpTo(c.Result.Position)
			m.positions.save(m.Position())
		}
	case gateway.DeltaMatchCompleted:
		m.status = "Delta: " + describeDelta(c.Result)
		if c.Result.Confident() {
			m.JumpTo(m.resolver.Shift(base, c.Result.Fragments))
			m.positions.save(m.Position())
		}
	}
}

func (m *model) pageText() string {
	page := m.CurrentPage()
	if len(page.Texts) == 0 {
		return "(blank page)"
	}
	var sb strings.Builder
	for i, text := range page.Texts {
		if i == m.Offset {
			sb.WriteString("▶ ")
		}
		sb.WriteString(strings.Join(strings.Fields(text), " "))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func main() {
	configPath := flag.String("config", "", "Config file (default $XDG_CONFIG_HOME/pagesync/config.toml)")
	shot := flag.String("shot", "", "Screenshot used by L (locate)")
	shot1 := flag.String("shot1", "", "First screenshot used by D (delta)")
	shot2 := flag.String("shot2", "", "Second screenshot used by D (delta)")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	showTOC := flag.Bool("toc", false, "Show table of contents at startup")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pagesync - GUI Reader with Screenshot Sync\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  pagesync [options] book\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pagesync book.epub                         Read a book\n")
		fmt.Fprintf(os.Stderr, "  pagesync --toc book.epub                   Show TOC panel at startup\n")
		fmt.Fprintf(os.Stderr, "  pagesync -shot1 a.png -shot2 b.png book.epub  Press D to apply a move\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("pagesync %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		if store, err := state.NewStateStore(); err == nil && printRecent(os.Stderr, store, 10) {
			fmt.Fprintln(os.Stderr)
		}
		fmt.Fprintln(os.Stderr, "Error: No book provided.")
		fmt.Fprintln(os.Stderr, "Try: pagesync -h")
		os.Exit(1)
	}
	sourceFile := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Level())

	rec, closeOCR := newRecognizer(cfg)
	defer closeOCR()

	book, res, err := openBook(cfg, sourceFile, rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read file '%s': %v\n", sourceFile, err)
		os.Exit(1)
	}

	var m *model
	var updateDisplay func()
	gw := gateway.New(gateway.SinkFunc(func(c gateway.Completion) {
		fyne.Do(func() {
			m.complete(c)
			updateDisplay()
		})
	}), cfg.GatewayOptions())
	gw.SetBook(res)

	pos := openPositions(sourceFile, book.Title)
	m = newModel(book, res, gw, pos)
	if saved, ok := pos.restore(); ok && !*freshStart {
		m.JumpTo(saved)
	}

	// Show TOC at startup if requested and available
	if *showTOC && len(book.Chapters) > 0 {
		m.tocVisible = true
	}

	a := app.New()
	w := a.NewWindow("pagesync - " + book.Title)

	statusLabel := widget.NewLabel("")
	statusLabel.Alignment = fyne.TextAlignCenter

	controlsLabel := widget.NewLabel("↑/↓: paragraph  ←/→: page  L: locate  D: delta  T: chapters  R: restart  F: fullscreen  Q: quit")
	controlsLabel.Alignment = fyne.TextAlignCenter

	pageLabel := widget.NewLabel("")
	pageLabel.Wrapping = fyne.TextWrapWord
	pageScroll := container.NewVScroll(pageLabel)

	messageLabel := widget.NewLabel("")
	messageLabel.Wrapping = fyne.TextWrapWord

	updateDisplay = func() {
		pageLabel.SetText(m.pageText())
		pageScroll.ScrollToTop()

		current, total := m.Progress()
		statusLabel.SetText(fmt.Sprintf("%s | Page %d/%d", m.CurrentChapterTitle(), current, total))
		messageLabel.SetText(m.status)
	}

	var tocPanel *container.Split
	var mainContainer *fyne.Container

	readingContent := container.NewBorder(
		statusLabel,
		container.NewVBox(messageLabel, controlsLabel),
		nil, nil,
		pageScroll,
	)

	if len(m.Book.Chapters) > 0 {
		chapters := m.Book.Chapters
		tocList := widget.NewList(
			func() int { return len(chapters) },
			func() fyne.CanvasObject {
				return container.NewVBox(
					widget.NewLabel("Title"),
					widget.NewLabel("Pages"),
				)
			},
			func(id widget.ListItemID, obj fyne.CanvasObject) {
				ch := chapters[id]
				vbox := obj.(*fyne.Container)
				titleLabel := vbox.Objects[0].(*widget.Label)
				pagesLabel := vbox.Objects[1].(*widget.Label)

				titleLabel.SetText(ch.Title)
				titleLabel.TextStyle.Bold = true
				pagesLabel.SetText(fmt.Sprintf("pages %d-%d", ch.PageStart+1, ch.PageEnd+1))
			},
		)

		tocContainer := container.NewBorder(
			widget.NewLabel("Chapters"),
			widget.NewLabel("Click to jump • T to close"),
			nil, nil,
			tocList,
		)

		tocPanel = container.NewHSplit(tocContainer, readingContent)
		tocPanel.Offset = 0.33

		tocList.OnSelected = func(id widget.ListItemID) {
			m.JumpToChapter(id)
			m.tocVisible = false
			tocPanel.Leading.Hide()
			tocPanel.Refresh()
			updateDisplay()
		}

		if !m.tocVisible {
			tocContainer.Hide()
		}

		mainContainer = container.NewStack(tocPanel)
	} else {
		mainContainer = container.NewStack(readingContent)
	}

	quit := func() {
		m.positions.save(m.Position())
		a.Quit()
	}

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeyUp:
			m.PrevFragment()
		case fyne.KeyDown:
			m.NextFragment()
		case fyne.KeyLeft, fyne.KeyPageUp:
			m.PrevPage()
		case fyne.KeyRight, fyne.KeyPageDown:
			m.NextPage()

		case fyne.KeyL:
			if *shot == "" {
				m.status = "Start with -shot to locate a screenshot"
			} else {
				m.submit(gateway.PositionMatch{ImagePath: *shot})
			}

		case fyne.KeyD:
			if *shot1 == "" || *shot2 == "" {
				m.status = "Start with -shot1 and -shot2 to apply a move"
			} else {
				m.submit(gateway.DeltaMatch{Image1: *shot1, Image2: *shot2, Current: m.Position()})
			}

		case fyne.KeyT:
			// Toggle TOC panel
			if tocPanel == nil {
				return
			}
			m.tocVisible = !m.tocVisible
			if m.tocVisible {
				tocPanel.Leading.Show()
			} else {
				tocPanel.Leading.Hide()
			}
			tocPanel.Refresh()

		case fyne.KeyR:
			// Restart from beginning
			m.JumpTo(corpus.Position{Page: reader.PageID(0)})
			m.positions.clear()

		case fyne.KeyF:
			w.SetFullScreen(!w.FullScreen())
			return

		case fyne.KeyQ:
			quit()
			return

		default:
			return
		}
		updateDisplay()
	})

	w.Resize(fyne.NewSize(800, 600))
	w.SetContent(mainContainer)
	w.SetOnClosed(func() {
		m.positions.save(m.Position())
	})

	updateDisplay()
	w.ShowAndRun()
}
