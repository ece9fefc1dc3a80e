package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/chatlens/internal/config"
	"github.com/pders01/chatlens/internal/session"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	keys        keyMap
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, keys: app.keys, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// A key press acknowledges the last error.
	kh.app.err = nil

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewOpenFile:
		return kh.app.pathInput.Focused()
	case ViewResults:
		return kh.app.searchInput.Focused()
	case ViewHome:
		return kh.app.historyList.SettingFilter()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if kh.app.view == ViewHome {
		// The list owns its filter input, esc included.
		var cmd tea.Cmd
		kh.app.historyList, cmd = kh.app.historyList.Update(msg)
		return kh.app, cmd
	}

	switch msg.String() {
	case "ctrl+c":
		return kh.app, tea.Quit
	case "esc":
		return kh.navigateBack()
	case "enter":
		return kh.handleTextInputEnter()
	case "tab", "down":
		if kh.app.view == ViewResults {
			if len(kh.app.resultList.Items()) > 0 {
				kh.app.searchInput.Blur()
				kh.app.resultList.Select(0)
			}
			return kh.app, nil
		}
		return kh.delegateToTextInput(msg)
	}

	if key.Matches(msg, kh.keys.OpenFile) {
		return kh.enterOpenFile()
	}
	return kh.delegateToTextInput(msg)
}

func (kh *KeyHandler) handleTextInputEnter() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewOpenFile:
		input := strings.TrimSpace(kh.app.pathInput.Value())
		if input == "" {
			return kh.app, nil
		}
		kh.app.pathInput.Blur()
		kh.app.busy = true
		return kh.app, tea.Batch(kh.app.spinner.Tick, kh.app.openFile(input))

	case ViewResults:
		kh.app.searchSeq++
		return kh.app, kh.app.runSearch(kh.sanitizeSearchInput(kh.app.searchInput.Value()))

	default:
		return kh.app, nil
	}
}

// delegateToTextInput passes the key to the focused input
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch kh.app.view {
	case ViewOpenFile:
		kh.app.pathInput, cmd = kh.app.pathInput.Update(msg)
		return kh.app, cmd

	case ViewResults:
		prev := kh.sanitizeSearchInput(kh.app.searchInput.Value())
		kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)

		next := kh.sanitizeSearchInput(kh.app.searchInput.Value())
		if next != prev && next != "" {
			return kh.app, tea.Batch(cmd, kh.app.debounceSearch())
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	k := kh.keys

	switch {
	case key.Matches(msg, k.Quit):
		return kh.app, tea.Quit, true
	case key.Matches(msg, k.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key.Matches(msg, k.Search):
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case key.Matches(msg, k.OpenFile):
		model, cmd := kh.enterOpenFile()
		return model, cmd, true
	case key.Matches(msg, k.Help):
		if kh.app.view != ViewHelp {
			kh.app.previousView = kh.app.view
			kh.app.view = ViewHelp
		}
		return kh.app, nil, true
	case key.Matches(msg, k.Info):
		if doc, _ := kh.app.session.Document(); doc == nil {
			kh.app.err = session.ErrNoDocument
			return kh.app, nil, true
		}
		if kh.app.view != ViewInfo {
			kh.app.previousView = kh.app.view
		}
		kh.app.view = ViewInfo
		kh.app.fitViewport(0)
		kh.app.viewport.SetContent(renderMuted("Loading file info..."))
		return kh.app, kh.app.renderInfo(), true
	}

	switch kh.app.view {
	case ViewHome:
		return kh.handleHomeCustomKeys(msg)
	case ViewResults:
		return kh.handleResultsCustomKeys(msg)
	case ViewContext:
		return kh.handleContextCustomKeys(msg)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleHomeCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if key.Matches(msg, kh.keys.Remove) && kh.app.store != nil {
		if i, ok := kh.app.historyList.SelectedItem().(historyItem); ok {
			kh.app.status = statusMsg{kind: session.StatusIdle, text: MsgHistoryRemoved}
			return kh.app, kh.app.removeHistory(i.entry.Path), true
		}
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleResultsCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	k := kh.keys
	switch {
	case key.Matches(msg, k.ToggleView):
		kh.app.toggleView()
		return kh.app, nil, true
	case key.Matches(msg, k.LoadMore):
		kh.app.loadMore()
		return kh.app, nil, true
	case key.Matches(msg, k.Context):
		if m, ok := kh.app.selectedResult(); ok {
			kh.app.openContext(m)
		}
		return kh.app, nil, true
	case key.Matches(msg, k.Copy):
		if m, ok := kh.app.selectedResult(); ok {
			return kh.app, kh.app.copyMessage(m), true
		}
		return kh.app, nil, true
	case key.Matches(msg, k.OpenMedia):
		if m, ok := kh.app.selectedResult(); ok {
			return kh.app, kh.app.openMedia(m), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleContextCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	m, ok := kh.app.selectedContext()
	if !ok {
		return kh.app, nil, false
	}
	switch {
	case key.Matches(msg, kh.keys.Copy):
		return kh.app, kh.app.copyMessage(m), true
	case key.Matches(msg, kh.keys.OpenMedia):
		return kh.app, kh.app.openMedia(m), true
	}
	return kh.app, nil, false
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewHome:
		kh.app.historyList, cmd = kh.app.historyList.Update(msg)
		if msg.String() == "enter" {
			if i, ok := kh.app.historyList.SelectedItem().(historyItem); ok {
				kh.app.busy = true
				return kh.app, tea.Batch(kh.app.spinner.Tick, kh.app.openFile(i.entry.Path))
			}
		}
		return kh.app, cmd

	case ViewResults:
		switch msg.String() {
		case "tab", "shift+tab", "/":
			kh.app.searchInput.Focus()
			return kh.app, nil
		case "up":
			if kh.app.resultList.Index() == 0 {
				kh.app.searchInput.Focus()
				return kh.app, nil
			}
		case "enter":
			if m, ok := kh.app.selectedResult(); ok {
				kh.app.openContext(m)
			}
			return kh.app, nil
		}
		kh.app.resultList, cmd = kh.app.resultList.Update(msg)
		return kh.app, cmd

	case ViewContext, ViewInfo:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewOpenFile:
		kh.app.pathInput.Blur()
		if doc, _ := kh.app.session.Document(); doc != nil {
			kh.app.view = ViewResults
		} else {
			kh.app.view = ViewHome
		}
		return kh.app, nil

	case ViewResults:
		if kh.app.session.Searching() {
			kh.app.session.Cancel()
			return kh.app, nil
		}
		kh.app.searchInput.Blur()
		kh.app.view = ViewHome
		return kh.app, kh.app.loadHistory()

	case ViewContext:
		kh.app.window = nil
		kh.app.contextHeader = ""
		kh.app.view = ViewResults
		kh.app.searchInput.Blur()
		return kh.app, nil

	case ViewInfo, ViewHelp:
		kh.app.view = kh.app.previousView
		if kh.app.view == ViewInfo || kh.app.view == ViewHelp {
			kh.app.view = ViewHome
		}
		return kh.app, nil

	default:
		return kh.app, tea.Quit
	}
}

// enterSearchMode switches to the results view with the search box focused
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	doc, _ := kh.app.session.Document()
	if doc == nil {
		kh.app.err = session.ErrNoDocument
		return kh.app, nil
	}

	kh.app.view = ViewResults
	kh.app.searchInput.Focus()
	kh.app.searchInput.CursorEnd()

	if n, ok := kh.app.session.IndexedCount(); ok {
		kh.app.status = statusMsg{kind: session.StatusIdle, text: countPrinter.Sprintf("Search: prefilter • idx: %d docs", n)}
	} else {
		kh.app.status = statusMsg{kind: session.StatusIdle, text: "Search: full scan"}
	}
	return kh.app, nil
}

func (kh *KeyHandler) enterOpenFile() (tea.Model, tea.Cmd) {
	if kh.app.view != ViewOpenFile {
		kh.app.previousView = kh.app.view
	}
	kh.app.searchInput.Blur()
	kh.app.view = ViewOpenFile
	kh.app.pathInput.Focus()
	kh.app.pathInput.CursorEnd()
	return kh.app, nil
}

// sanitizeSearchInput sanitizes and limits search input length
func (kh *KeyHandler) sanitizeSearchInput(input string) string {
	input = strings.TrimSpace(input)

	if len(input) > 256 {
		input = input[:256]
	}

	input = singleLine(input)
	for strings.Contains(input, "  ") {
		input = strings.ReplaceAll(input, "  ", " ")
	}

	return strings.TrimSpace(input)
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	k := kh.keys
	switch kh.app.view {
	case ViewHome:
		help := []string{helpEntry(k.OpenFile)}
		if len(kh.app.history) > 0 {
			help = append(help, "enter: open", helpEntry(k.Remove))
		}
		if doc, _ := kh.app.session.Document(); doc != nil {
			help = append(help, helpEntry(k.Search))
		}
		return append(help, helpEntry(k.Help))

	case ViewOpenFile:
		return []string{"enter: open", "esc: cancel"}

	case ViewResults:
		if kh.app.searchInput.Focused() {
			return []string{"enter: search", helpEntry(k.OpenFile)}
		}
		help := []string{helpEntry(k.Context), helpEntry(k.ToggleView), helpEntry(k.Copy), helpEntry(k.OpenMedia)}
		if kh.app.outcome != nil && kh.app.outcome.HasMore {
			help = append(help, helpEntry(k.LoadMore))
		}
		return append(help, helpEntry(k.Info))

	case ViewContext:
		return []string{helpEntry(k.Copy), helpEntry(k.OpenMedia), helpEntry(k.Back)}

	case ViewInfo, ViewHelp:
		return []string{helpEntry(k.Back)}

	default:
		return []string{}
	}
}
