package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/pders01/chatlens/internal/config"
	"github.com/pders01/chatlens/internal/session"
)

func TestKeyHandler_ModifierKey(t *testing.T) {
	app := NewApp(nil, config.TestConfig())

	assert.NotNil(t, app.keyHandler)
	assert.Equal(t, "ctrl+", app.keyHandler.modifierKey)
}

func TestKeyHandler_CustomModifier(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Keys.Modifier = "alt"
	app := NewApp(nil, cfg)

	assert.Equal(t, "alt+", app.keyHandler.modifierKey)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f"), Alt: true})
	assert.Equal(t, ViewOpenFile, app.view, "alt+f should open the file prompt")
}

func TestKeyHandler_HandleKey_CtrlF(t *testing.T) {
	app := NewApp(nil, config.TestConfig())
	app.view = ViewHome

	updatedModel, _ := app.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	updatedApp := updatedModel.(*App)

	assert.Equal(t, ViewOpenFile, updatedApp.view, "Ctrl+F should switch to ViewOpenFile")
	assert.True(t, updatedApp.pathInput.Focused())
	assert.Equal(t, ViewHome, updatedApp.previousView)
}

func TestKeyHandler_HandleKey_CtrlS(t *testing.T) {
	app := NewApp(nil, config.TestConfig())
	app.view = ViewHome

	updatedModel, _ := app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	updatedApp := updatedModel.(*App)

	assert.Equal(t, ViewHome, updatedApp.view, "Ctrl+S without a document should stay put")
	assert.ErrorIs(t, updatedApp.err, session.ErrNoDocument)
}

func TestKeyHandler_CtrlSReportsSearchMode(t *testing.T) {
	app := loadedApp(t, 5, 1)
	app.searchInput.Blur()
	app.view = ViewHome

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, ViewResults, app.view)
	assert.True(t, app.searchInput.Focused())
	assert.Equal(t, "Search: full scan", app.status.text, "the test config disables the prefilter")
}

func TestKeyHandler_PlainKeysTypeIntoSearch(t *testing.T) {
	app := loadedApp(t, 5, 1)
	assert.True(t, app.searchInput.Focused())

	for _, r := range "vmcyoi" {
		app.Update(runes(string(r)))
	}

	assert.Equal(t, "vmcyoi", app.searchInput.Value(), "action keys are text while the input is focused")
	assert.Equal(t, ViewResults, app.view)
}

func TestKeyHandler_QuitKeys(t *testing.T) {
	app := NewApp(nil, config.TestConfig())

	_, cmd := app.Update(runes("q"))
	assert.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestKeyHandler_SanitizeSearchInput(t *testing.T) {
	kh := NewApp(nil, config.TestConfig()).keyHandler

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  hello  ", "hello"},
		{"folds newlines and tabs", "a\nb\tc", "a b c"},
		{"collapses spaces", "a    b", "a b"},
		{"keeps operators", "go OR rust", "go OR rust"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kh.sanitizeSearchInput(tt.input))
		})
	}

	long := kh.sanitizeSearchInput(strings.Repeat("x", 300))
	assert.Len(t, long, 256)
}

func TestKeyHandler_GetHelpForCurrentView(t *testing.T) {
	app := NewApp(nil, config.TestConfig())
	kh := app.keyHandler

	app.view = ViewHome
	help := kh.GetHelpForCurrentView()
	assert.Contains(t, help, "ctrl+f: open file")
	assert.Contains(t, help, "?: help")
	assert.NotContains(t, help, "ctrl+s: search", "search needs a document")

	app.view = ViewOpenFile
	assert.Equal(t, []string{"enter: open", "esc: cancel"}, kh.GetHelpForCurrentView())

	app.view = ViewResults
	app.searchInput.Focus()
	assert.Equal(t, []string{"enter: search", "ctrl+f: open file"}, kh.GetHelpForCurrentView())

	app.searchInput.Blur()
	help = kh.GetHelpForCurrentView()
	assert.Contains(t, help, "c: context")
	assert.Contains(t, help, "v: card/list")
	assert.NotContains(t, help, "m: load more", "nothing to load yet")

	app.view = ViewContext
	assert.Equal(t, []string{"y: copy", "o: open media", "esc: back"}, kh.GetHelpForCurrentView())

	app.view = ViewInfo
	assert.Equal(t, []string{"esc: back"}, kh.GetHelpForCurrentView())
}

func TestKeyHandler_HelpShowsLoadMore(t *testing.T) {
	app := searchedApp(t, 130, 1, "foo")
	app.searchInput.Blur()

	assert.Contains(t, app.keyHandler.GetHelpForCurrentView(), "m: load more")
}
