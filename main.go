//go:build !gui

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/pagesync/internal/corpus"
	"github.com/metcalfc/pagesync/internal/gateway"
	"github.com/metcalfc/pagesync/internal/logging"
	"github.com/metcalfc/pagesync/internal/reader"
	"github.com/metcalfc/pagesync/internal/resolve"
	"github.com/metcalfc/pagesync/internal/state"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00")).
			Padding(0, 1)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#FF0000")).
			PaddingLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Locate   key.Binding
	Delta    key.Binding
	Chapters key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev paragraph")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next paragraph")),
		PrevPage: key.NewBinding(key.WithKeys("left", "pgup", "h"), key.WithHelp("←/pgup", "prev page")),
		NextPage: key.NewBinding(key.WithKeys("right", "pgdown", " "), key.WithHelp("→/pgdn", "next page")),
		Locate:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "locate screenshot")),
		Delta:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "screenshot delta")),
		Chapters: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "chapters")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload book")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.Locate, k.Delta, k.Chapters, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage},
		{k.Locate, k.Delta, k.Chapters, k.Reload},
		{k.Help, k.Quit},
	}
}

type mode int

const (
	modeReading mode = iota
	modePrompt
	modeChapters
)

type prompt int

const (
	promptLocate prompt = iota
	promptDeltaFirst
	promptDeltaSecond
)

// bookLoadedMsg carries the result of reloading the book.
type bookLoadedMsg struct {
	book     *reader.Book
	resolver *resolve.Resolver
	err      error
}

type model struct {
	*reader.Reader
	resolver  *resolve.Resolver
	gw        *gateway.Gateway
	positions positions
	load      func() (*reader.Book, *resolve.Resolver, error)

	keys  keyMap
	help  help.Model
	view  viewport.Model
	spin  spinner.Model
	input textinput.Model

	mode          mode
	prompt        prompt
	firstShot     string
	chapterCursor int

	// pending maps in-flight requests to the position they were issued at.
	pending map[gateway.RequestID]corpus.Position
	status  string

	quitting bool
	width    int
	height   int
}

func newModel(book *reader.Book, res *resolve.Resolver, gw *gateway.Gateway, pos positions) model {
	input := textinput.New()
	input.CharLimit = 1024

	m := model{
		Reader:    reader.NewReader(book),
		resolver:  res,
		gw:        gw,
		positions: pos,
		keys:      newKeyMap(),
		help:      help.New(),
		view:      viewport.New(80, 20),
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:     input,
		pending:   make(map[gateway.RequestID]corpus.Position),
		width:     80,
		height:    24,
	}
	m.layout()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if len(m.pending) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case gateway.PositionMatchCompleted:
		if _, ok := m.finish(msg.Tag); !ok {
			return m, nil
		}
		m.status = "locate: " + describeResult(msg.Result)
		if msg.Result.Confident() {
			m.moveTo(msg.Result.Position)
		}
		return m, nil

	case gateway.DeltaMatchCompleted:
		base, ok := m.finish(msg.Tag)
		if !ok {
			return m, nil
		}
		m.status = "delta: " + describeDelta(msg.Result)
		if msg.Result.Confident() {
			m.moveTo(m.resolver.Shift(base, msg.Result.Fragments))
		}
		return m, nil

	case bookLoadedMsg:
		if msg.err != nil {
			logger.Error("reload failed", "error", msg.err)
			m.status = fmt.Sprintf("reload failed: %v", msg.err)
			return m, nil
		}
		pos := m.Position()
		m.Reader = reader.NewReader(msg.book)
		m.JumpTo(pos)
		m.resolver = msg.resolver
		gen := m.gw.SetBook(msg.resolver)
		m.status = fmt.Sprintf("reloaded %s (%d pages)", msg.book.Title, len(msg.book.Pages))
		logger.Info("book reloaded", "path", msg.book.Path, "generation", gen)
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modePrompt:
			return m.updatePrompt(msg)
		case modeChapters:
			return m.updateChapters(msg)
		}
		return m.updateReading(msg)
	}

	return m, nil
}

func (m model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.positions.save(m.Position())
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.PrevFragment()
	case key.Matches(msg, m.keys.Down):
		m.NextFragment()
	case key.Matches(msg, m.keys.PrevPage):
		m.PrevPage()
	case key.Matches(msg, m.keys.NextPage):
		m.NextPage()

	case key.Matches(msg, m.keys.Locate):
		return m, m.ask(promptLocate, "Screenshot: ")
	case key.Matches(msg, m.keys.Delta):
		return m, m.ask(promptDeltaFirst, "First screenshot: ")

	case key.Matches(msg, m.keys.Chapters):
		if len(m.Book.Chapters) == 0 {
			m.status = "no chapters"
			return m, nil
		}
		m.mode = modeChapters
		m.chapterCursor = m.CurrentChapter
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if m.load == nil {
			return m, nil
		}
		m.status = "reloading..."
		load := m.load
		return m, func() tea.Msg {
			b, r, err := load()
			return bookLoadedMsg{book: b, resolver: r, err: err}
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.endPrompt()
		m.status = "cancelled"
		return m, nil

	case tea.KeyEnter:
		path := expandHome(strings.TrimSpace(m.input.Value()))
		if path == "" {
			m.endPrompt()
			return m, nil
		}
		switch m.prompt {
		case promptLocate:
			m.endPrompt()
			return m, m.submit(gateway.PositionMatch{ImagePath: path})
		case promptDeltaFirst:
			m.firstShot = path
			return m, m.ask(promptDeltaSecond, "Second screenshot: ")
		case promptDeltaSecond:
			m.endPrompt()
			return m, m.submit(gateway.DeltaMatch{Image1: m.firstShot, Image2: path, Current: m.Position()})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateChapters(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc, key.Matches(msg, m.keys.Chapters):
		m.mode = modeReading
	case msg.Type == tea.KeyEnter:
		m.JumpToChapter(m.chapterCursor)
		m.mode = modeReading
		m.refresh()
	case key.Matches(msg, m.keys.Up):
		m.chapterCursor = max(m.chapterCursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.chapterCursor = min(m.chapterCursor+1, len(m.Book.Chapters)-1)
	case key.Matches(msg, m.keys.Quit):
		m.positions.save(m.Position())
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) ask(p prompt, label string) tea.Cmd {
	m.mode = modePrompt
	m.prompt = p
	m.input.Prompt = label
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *model) endPrompt() {
	m.mode = modeReading
	m.input.Blur()
	m.input.SetValue("")
}

// submit sends req to the gateway and starts the spinner if it was idle.
func (m *model) submit(req gateway.Request) tea.Cmd {
	tag := m.gw.Submit(req)
	m.pending[tag.ID] = m.Position()
	m.status = "resolving..."
	if len(m.pending) == 1 {
		return m.spin.Tick
	}
	return nil
}

// finish retires a completed request and returns the position it was issued
// at. Completions for a book that has since been reloaded are dropped.
func (m *model) finish(tag gateway.Tag) (corpus.Position, bool) {
	base, ok := m.pending[tag.ID]
	delete(m.pending, tag.ID)
	if !ok || !m.gw.IsCurrent(tag) {
		logger.Info("ignoring stale completion", "request_id", tag.ID, "generation", tag.Generation)
		m.status = "ignored a result for an earlier version of the book"
		return corpus.Position{}, false
	}
	return base, true
}

func (m *model) moveTo(pos corpus.Position) {
	m.JumpTo(pos)
	m.positions.save(m.Position())
	m.refresh()
}

func (m *model) layout() {
	m.help.Width = m.width
	m.input.Width = max(m.width-24, 10)
	m.view.Width = m.width
	m.view.Height = max(m.height-2-lipgloss.Height(m.help.View(m.keys)), 1)
	m.refresh()
}

// refresh renders the current page and scrolls the current paragraph into
// view.
func (m *model) refresh() {
	width := max(m.width-4, 20)
	page := m.CurrentPage()
	if len(page.Texts) == 0 {
		m.view.SetContent(statusStyle.Render("(blank page)"))
		m.view.GotoTop()
		return
	}

	var sb strings.Builder
	line, target := 0, 0
	for i, text := range page.Texts {
		style := textStyle
		if i == m.Offset {
			style = currentStyle
			target = line
		}
		block := style.Width(width).Render(strings.Join(strings.Fields(text), " "))
		sb.WriteString(block)
		sb.WriteString("\n\n")
		line += lipgloss.Height(block) + 1
	}
	m.view.SetContent(sb.String())
	m.view.SetYOffset(target)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	current, total := m.Progress()
	header := titleStyle.Render(m.Book.Title) +
		statusStyle.Render(fmt.Sprintf("%s | Page %d/%d", m.CurrentChapterTitle(), current, total))

	body := m.view.View()
	if m.mode == modeChapters {
		body = m.chaptersView()
	}

	var footer string
	switch {
	case m.mode == modePrompt:
		footer = m.input.View()
	case len(m.pending) > 0:
		footer = m.spin.View() + statusStyle.Render(m.status)
	default:
		footer = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer, m.help.View(m.keys))
}

func (m model) chaptersView() string {
	chapters := m.Book.Chapters
	rows := max(m.view.Height, 1)
	first := min(max(m.chapterCursor-rows/2, 0), max(len(chapters)-rows, 0))

	var sb strings.Builder
	for i := first; i < len(chapters) && i < first+rows; i++ {
		ch := chapters[i]
		line := fmt.Sprintf("  %s (p. %d)", ch.Title, ch.PageStart+1)
		if i == m.chapterCursor {
			line = cursorStyle.Render("> " + line[2:])
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return lipgloss.NewStyle().Height(rows).Render(sb.String())
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}

func main() {
	configPath := flag.String("config", "", "Config file (default $XDG_CONFIG_HOME/pagesync/config.toml)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFile := flag.String("log", "", "Log file for the reader (default pagesync.log in the temp dir)")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	locate := flag.String("locate", "", "Print where a screenshot is in the book and exit")
	delta := flag.String("delta", "", "Print the move between two screenshots (a.png,b.png) and exit")
	page := flag.Int("page", 1, "Current page for -delta")
	offset := flag.Int("offset", 0, "Current paragraph on the page for -delta, from 0")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pagesync - Terminal Reader with Screenshot Sync\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  pagesync [options] book\n\n")
		fmt.Fprintf(os.Stderr, "Supported formats: %s\n\n", strings.Join(reader.SupportedFormats(), ", "))
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pagesync book.epub                              Read a book\n")
		fmt.Fprintf(os.Stderr, "  pagesync -locate shot.png book.epub             Find a screenshot\n")
		fmt.Fprintf(os.Stderr, "  pagesync -delta a.png,b.png -page 40 book.epub  Measure a move\n")
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  ↑/↓      Previous/next paragraph\n")
		fmt.Fprintf(os.Stderr, "  ←/→      Previous/next page\n")
		fmt.Fprintf(os.Stderr, "  O        Locate a screenshot\n")
		fmt.Fprintf(os.Stderr, "  D        Apply the move between two screenshots\n")
		fmt.Fprintf(os.Stderr, "  T        Chapters\n")
		fmt.Fprintf(os.Stderr, "  R        Reload the book\n")
		fmt.Fprintf(os.Stderr, "  Q        Quit\n")
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
	path := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Level())

	headless := *locate != "" || *delta != ""
	if !headless {
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(os.TempDir(), "pagesync.log")
		}
		f, err := tea.LogToFile(cfg.LogFile, "pagesync")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logging.SetOutput(f)
	}

	rec, closeOCR := newRecognizer(cfg)
	defer closeOCR()

	book, res, err := openBook(cfg, path, rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if headless {
		var req gateway.Request = gateway.PositionMatch{ImagePath: *locate}
		if *delta != "" {
			first, second, err := parseDelta(*delta)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			current := corpus.Position{Page: reader.PageID(*page - 1), Offset: *offset}
			req = gateway.DeltaMatch{Image1: first, Image2: second, Current: current}
		}
		ok, err := runHeadless(context.Background(), os.Stdout, res, req, cfg.GatewayOptions())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			closeOCR()
			os.Exit(2)
		}
		return
	}

	var p *tea.Program
	gw := gateway.New(gateway.SinkFunc(func(c gateway.Completion) { p.Send(c) }), cfg.GatewayOptions())
	gw.SetBook(res)

	pos := openPositions(path, book.Title)
	m := newModel(book, res, gw, pos)
	m.load = func() (*reader.Book, *resolve.Resolver, error) {
		return openBook(cfg, path, rec)
	}
	if saved, ok := pos.restore(); ok && !*freshStart {
		m.JumpTo(saved)
		m.refresh()
		m.status = "restored " + describePosition(m.Position())
	}

	p = tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	gw.Wait()
}
