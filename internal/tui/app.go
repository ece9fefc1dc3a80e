package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/config"
	"github.com/pders01/chatlens/internal/debuglog"
	"github.com/pders01/chatlens/internal/media"
	"github.com/pders01/chatlens/internal/search"
	"github.com/pders01/chatlens/internal/session"
	"github.com/pders01/chatlens/internal/storage"
	"github.com/pders01/chatlens/internal/validation"
)

type App struct {
	config     *config.Config
	store      *storage.Store
	session    *session.Session
	sink       *statusSink
	launcher   *media.Launcher
	validator  *validation.FilePathValidator
	keys       keyMap
	keyHandler *KeyHandler

	historyList list.Model
	resultList  list.Model
	pathInput   textinput.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	help        help.Model

	view          View
	previousView  View
	history       []*storage.HistoryEntry
	outcome       *session.Outcome
	window        *search.Window
	contextHeader string
	status        statusMsg
	busy          bool
	searchSeq     int
	startPath     string

	ctx          context.Context
	cancel       context.CancelFunc
	watchCancel  context.CancelFunc
	listenReload tea.Cmd

	width           int
	height          int
	err             error
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp builds the TUI around a fresh session. store may be nil, in which
// case recent files and preferences are not kept.
func NewApp(store *storage.Store, cfg *config.Config) *App {
	ApplyTheme(cfg.UI.Colors)

	historyList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	historyList.Title = "› recent files"
	historyList.SetShowStatusBar(false)
	historyList.SetFilteringEnabled(true)
	historyList.SetShowHelp(true)

	resultList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	resultList.Title = "› results"
	resultList.SetShowStatusBar(false)
	resultList.SetShowHelp(false)
	resultList.SetFilteringEnabled(false)

	pi := textinput.New()
	pi.Placeholder = "Path to a chat export (.json, .json.zst)..."

	si := textinput.New()
	si.Placeholder = `Search messages... use "quotes" for phrases`
	si.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	ctx, cancel := context.WithCancel(context.Background())
	sink := newStatusSink()

	app := &App{
		config:       cfg,
		store:        store,
		session:      session.New(cfg, sink),
		sink:         sink,
		launcher:     media.NewLauncher(cfg),
		validator:    validation.NewFilePathValidator(),
		keys:         newKeyMap(cfg),
		historyList:  historyList,
		resultList:   resultList,
		pathInput:    pi,
		searchInput:  si,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		help:         help.New(),
		view:         ViewHome,
		previousView: ViewHome,
		ctx:          ctx,
		cancel:       cancel,
	}

	if store != nil {
		mode := session.ParseViewMode(store.PrefOr(storage.PrefViewMode, cfg.UI.DefaultView))
		app.session.SetView(mode)
		pi.SetValue(store.PrefOr(storage.PrefLastFile, ""))
		app.pathInput = pi
	}
	app.setResultDelegate(app.session.View())

	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth := a.config.UI.Message.WordWrapMaxWidth
	minWidth := a.config.UI.Message.WordWrapMinWidth
	if maxWidth <= 0 {
		maxWidth = 120
	}
	if minWidth <= 0 {
		minWidth = 40
	}

	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.loadHistory(),
		a.sink.listen(a.ctx),
		tea.EnterAltScreen,
	}
	if a.startPath != "" {
		a.busy = true
		cmds = append(cmds, a.spinner.Tick, a.openFile(a.startPath))
	}
	return tea.Batch(cmds...)
}

// OpenOnStart queues path to be opened once the program runs.
func (a *App) OpenOnStart(path string) {
	a.startPath = path
}

// Close stops the file watcher and releases the session.
func (a *App) Close() error {
	a.stopWatch()
	a.cancel()
	return a.session.Close()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case statusMsg:
		a.status = msg
		return a, a.sink.listen(a.ctx)

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case historyLoadedMsg:
		a.setHistory(msg.entries)

	case fileLoadedMsg:
		a.busy = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.resetResults()
		a.view = ViewResults
		a.searchInput.Reset()
		a.searchInput.Focus()
		a.status = statusMsg{kind: session.StatusSuccess, text: session.MsgLoaded(msg.info.Name, msg.info.MessageCount)}
		return a, tea.Batch(a.loadHistory(), a.watchFile(msg.info.Path))

	case fileReloadedMsg:
		return a, a.handleReload(msg)

	case documentSwappedMsg:
		return a, a.handleSwapped(msg)

	case searchDebounceMsg:
		if msg.seq != a.searchSeq || a.view != ViewResults {
			return a, nil
		}
		query := strings.TrimSpace(a.searchInput.Value())
		if query == "" {
			return a, nil
		}
		return a, a.runSearch(query)

	case searchDoneMsg:
		a.busy = a.session.Searching()
		if errors.Is(msg.err, search.ErrSuperseded) {
			return a, nil
		}
		if msg.err != nil {
			// The session already reported it through the sink.
			debuglog.Debugf("Search %q ended: %v", msg.query, msg.err)
			return a, nil
		}
		a.showOutcome(msg.outcome, false)

	case infoRenderedMsg:
		if a.view == ViewInfo {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}

	case noticeMsg:
		a.status = statusMsg{kind: msg.kind, text: msg.text}

	case errorMsg:
		a.err = msg.err

	default:
		return a, a.forward(msg)
	}

	return a, nil
}

// forward hands messages the app does not handle itself, such as cursor
// blinks, to the components of the current view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.view {
	case ViewHome:
		a.historyList, cmd = a.historyList.Update(msg)
	case ViewOpenFile:
		a.pathInput, cmd = a.pathInput.Update(msg)
	case ViewResults:
		if a.searchInput.Focused() {
			a.searchInput, cmd = a.searchInput.Update(msg)
		} else {
			a.resultList, cmd = a.resultList.Update(msg)
		}
	case ViewContext, ViewInfo:
		switch msg.(type) {
		case tea.MouseMsg:
			a.viewport, cmd = a.viewport.Update(msg)
		}
	}
	return cmd
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.historyList.SetSize(width, height-3)

	// header, subtitle, framed input, help line and a blank line
	resultsHeight := height - 11
	if resultsHeight < 5 {
		resultsHeight = 5
	}
	a.resultList.SetSize(width, resultsHeight)

	a.viewport.Width = width
	a.fitViewport(0)
	a.help.Width = width

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = width - 4
	}
	a.pathInput.Width = inputWidth
	a.searchInput.Width = inputWidth

	if a.view == ViewContext && a.window != nil {
		a.renderContext()
	}
}

// fitViewport sizes the viewport to the screen minus reserved lines for a
// fixed header above it.
func (a *App) fitViewport(reserved int) {
	if a.height == 0 {
		return
	}
	h := a.height - 3 - reserved
	if h < 1 {
		h = 1
	}
	a.viewport.Height = h
}

func (a *App) setHistory(entries []*storage.HistoryEntry) {
	a.history = entries
	now := time.Now()
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = historyItem{entry: e, now: now}
	}
	a.historyList.SetItems(items)
}

func (a *App) handleReload(msg fileReloadedMsg) tea.Cmd {
	cmds := []tea.Cmd{a.listenReload}
	if msg.err != nil {
		a.err = failed(actReload, msg.err)
		return tea.Batch(cmds...)
	}

	// Loading rebuilds the prefilter index, so it runs off the UI loop.
	a.busy = true
	doc, info := msg.doc, msg.info
	cmds = append(cmds, a.spinner.Tick, func() tea.Msg {
		a.session.Load(doc, info)
		return documentSwappedMsg{info: info}
	})
	return tea.Batch(cmds...)
}

// handleSwapped resets the views for the reloaded document and repeats
// the current search against it.
func (a *App) handleSwapped(msg documentSwappedMsg) tea.Cmd {
	a.busy = a.session.Searching()
	a.resetResults()
	if a.view == ViewContext || a.view == ViewInfo {
		a.view = ViewResults
	}
	a.status = statusMsg{kind: session.StatusSuccess, text: MsgReloaded(msg.info.Name, msg.info.MessageCount)}

	if query := strings.TrimSpace(a.searchInput.Value()); query != "" {
		return a.runSearch(query)
	}
	return nil
}

func (a *App) resetResults() {
	a.outcome = nil
	a.window = nil
	a.contextHeader = ""
	a.resultList.SetItems([]list.Item{})
	a.resultList.Title = "› results"
}

func (a *App) setResultDelegate(mode session.ViewMode) {
	d := list.NewDefaultDelegate()
	if mode == session.ViewList {
		d.ShowDescription = false
		d.SetSpacing(0)
	}
	a.resultList.SetDelegate(d)
}

func (a *App) resultItemFor(r search.Rendered, mode session.ViewMode) resultItem {
	item := resultItem{rendered: r, mode: mode}
	if r.Message != nil {
		item.badge = mediaBadge(a.launcher.Detector().Counts(r.Message))
	}
	return item
}

// showOutcome puts a batch on screen, after the current items when
// appending, else in place of them.
func (a *App) showOutcome(out *session.Outcome, appending bool) {
	a.outcome = out
	a.setResultDelegate(out.View)

	var items []list.Item
	if appending {
		items = a.resultList.Items()
	}
	for _, r := range out.Rendered {
		items = append(items, a.resultItemFor(r, out.View))
	}
	a.resultList.SetItems(items)
	if !appending {
		a.resultList.Select(0)
	}
	a.resultList.Title = "› " + out.Stats()
}

func (a *App) loadMore() {
	if a.outcome == nil || !a.outcome.HasMore {
		a.status = statusMsg{kind: session.StatusIdle, text: MsgAllShown}
		return
	}
	out := a.session.LoadMore()
	a.showOutcome(out, true)
	a.status = statusMsg{kind: session.StatusIdle, text: out.Stats()}
}

func (a *App) toggleView() {
	mode := session.ViewList
	if a.session.View() == session.ViewList {
		mode = session.ViewCard
	}

	selected := a.resultList.Index()
	out := a.session.SetView(mode)
	if a.outcome != nil {
		a.showOutcome(out, false)
		a.resultList.Select(selected)
	} else {
		a.setResultDelegate(mode)
	}
	a.status = statusMsg{kind: session.StatusIdle, text: MsgViewMode(mode)}

	if a.store != nil {
		if err := a.store.SetPref(storage.PrefViewMode, mode.String()); err != nil {
			debuglog.Warnf("Failed to save view mode: %v", err)
		}
	}
}

func (a *App) selectedResult() (*chat.Message, bool) {
	item, ok := a.resultList.SelectedItem().(resultItem)
	if !ok || item.rendered.Message == nil {
		return nil, false
	}
	return item.rendered.Message, true
}

// selectedContext returns the message highlighted in the context view.
func (a *App) selectedContext() (*chat.Message, bool) {
	if a.window == nil {
		return nil, false
	}
	e, ok := a.window.Selected()
	if !ok {
		return nil, false
	}
	return e.Message, true
}

func (a *App) openContext(msg *chat.Message) {
	w, ok := a.session.Context(msg.ID)
	if !ok {
		a.status = statusMsg{kind: session.StatusError, text: MsgNotFound}
		return
	}
	a.window = w
	a.previousView = a.view
	a.view = ViewContext
	a.renderContext()
}

func (a *App) renderContext() {
	doc, _ := a.session.Document()
	a.contextHeader = renderContextHeader(a.window, doc.Len(), a.width)
	a.fitViewport(lipgloss.Height(a.contextHeader) + 1)

	content, selectedLine := renderWindow(a.window, a.launcher.Detector(), a.width)
	a.viewport.SetContent(content)
	offset := selectedLine - 2
	if offset < 0 {
		offset = 0
	}
	a.viewport.SetYOffset(offset)
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewHome:
		if len(a.history) == 0 {
			content = renderCentered(a.width, a.height-3, GetWelcomeMessage(a.keys.OpenFile.Help().Key))
		} else {
			content = a.historyList.View()
		}

	case ViewOpenFile:
		content = renderCentered(a.width, a.height-3,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› open chat export"),
				"",
				renderInputFrame(a.pathInput.View(), a.pathInput.Focused(), a.pathInput.Width),
				"",
				renderHelp("Press Enter to open, Esc to cancel"),
			),
		)

	case ViewResults:
		content = a.resultsView()

	case ViewContext:
		content = lipgloss.JoinVertical(lipgloss.Left, a.contextHeader, "", a.viewport.View())

	case ViewInfo:
		content = a.viewport.View()

	case ViewHelp:
		content = renderCentered(a.width, a.height-3,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› keys"),
				"",
				a.help.FullHelpView(a.keys.FullHelp()),
			),
		)
	}

	customStatus := a.getCustomStatusBar()
	if customStatus == "" {
		return content
	}

	separatorWidth := a.width - 2
	if separatorWidth < 0 {
		separatorWidth = 0
	}
	separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))

	return lipgloss.JoinVertical(lipgloss.Top, content, separator, customStatus)
}

func (a *App) resultsView() string {
	header := "› search"
	subtitle := ""
	if _, info := a.session.Document(); info != nil {
		header = "› search in " + info.Name
		subtitle = countPrinter.Sprintf("%d messages • %s", info.MessageCount, chat.FormatFileSize(info.Size))
	}

	var helpText string
	switch {
	case a.searchInput.Focused():
		helpText = "Type to search • Enter: search • Tab/↓: results • Esc: back"
	case len(a.resultList.Items()) > 0:
		helpText = "↑↓: navigate • Enter: context • Tab/↑: search box • Esc: back"
	default:
		helpText = "No results • Tab: search box • Esc: back"
	}

	body := a.resultList.View()
	if a.outcome != nil && a.outcome.Total == 0 {
		body = renderMuted(MsgNoResults)
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height - 3).
		MaxHeight(a.height - 3).
		Render(lipgloss.JoinVertical(
			lipgloss.Top,
			renderHeader(header, subtitle, a.width),
			renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
			renderMuted(helpText),
			"",
			body,
		))
}

func (a *App) getCustomStatusBar() string {
	if a.err != nil {
		errorText := ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err))
		return StatusBarStyle.Width(a.width).Render(errorText)
	}

	var parts []string
	if a.status.text != "" {
		text := a.status.text
		if a.busy {
			text = a.spinner.View() + " " + text
		}
		parts = append(parts, statusStyle(a.status.kind).Render(text))
	}
	parts = append(parts, a.keyHandler.GetHelpForCurrentView()...)

	if len(parts) == 0 {
		return ""
	}
	return StatusBarStyle.Width(a.width).Render(strings.Join(parts, " • "))
}
