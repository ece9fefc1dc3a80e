package tui

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/debuglog"
	"github.com/pders01/chatlens/internal/media"
	"github.com/pders01/chatlens/internal/session"
	"github.com/pders01/chatlens/internal/storage"
)

type historyLoadedMsg struct {
	entries []*storage.HistoryEntry
}

type fileLoadedMsg struct {
	info *chat.FileInfo
	err  error
}

type fileReloadedMsg struct {
	doc  *chat.Document
	info *chat.FileInfo
	err  error
}

// documentSwappedMsg reports that a reloaded document replaced the
// session's current one.
type documentSwappedMsg struct {
	info *chat.FileInfo
}

type searchDoneMsg struct {
	query   string
	outcome *session.Outcome
	err     error
}

type searchDebounceMsg struct {
	seq int
}

type infoRenderedMsg struct {
	content string
}

type noticeMsg struct {
	kind session.StatusKind
	text string
}

type errorMsg struct {
	err error
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

func (a *App) loadHistory() tea.Cmd {
	return func() tea.Msg {
		if a.store == nil {
			return historyLoadedMsg{}
		}
		entries, err := a.store.History()
		if err != nil {
			return errorMsg{err: failed(actLoadHistory, err)}
		}
		return historyLoadedMsg{entries: entries}
	}
}

// openFile validates path, loads it into the session and records it in
// the history. The previous document stays loaded on failure.
func (a *App) openFile(path string) tea.Cmd {
	return func() tea.Msg {
		clean, _, err := a.validator.ExportFile(path)
		if err != nil {
			return fileLoadedMsg{err: err}
		}

		info, err := a.session.LoadFile(clean)
		if err != nil {
			return fileLoadedMsg{err: err}
		}

		if a.store != nil {
			entry := &storage.HistoryEntry{
				Path:         info.Path,
				Name:         info.Name,
				Size:         info.Size,
				MessageCount: info.MessageCount,
			}
			if err := retryOperation(func() error { return a.store.AddHistory(entry) }); err != nil {
				debuglog.Warnf("Failed to record %s in history: %v", info.Path, err)
			}
			if err := a.store.SetPref(storage.PrefLastFile, info.Path); err != nil {
				debuglog.Warnf("Failed to save last file: %v", err)
			}
		}
		return fileLoadedMsg{info: info}
	}
}

func (a *App) removeHistory(path string) tea.Cmd {
	return func() tea.Msg {
		if err := retryOperation(func() error { return a.store.RemoveHistory(path) }); err != nil {
			return errorMsg{err: failed(actRemoveHistory, err)}
		}
		entries, err := a.store.History()
		if err != nil {
			return errorMsg{err: failed(actLoadHistory, err)}
		}
		return historyLoadedMsg{entries: entries}
	}
}

// runSearch scans on the command goroutine. Progress reaches the UI
// through the status sink while it runs.
func (a *App) runSearch(query string) tea.Cmd {
	a.busy = true
	ctx := a.ctx
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		out, err := a.session.Search(ctx, query)
		return searchDoneMsg{query: query, outcome: out, err: err}
	})
}

// debounceSearch schedules a search for the current input once typing
// pauses. Zero debounce means searches only run on enter.
func (a *App) debounceSearch() tea.Cmd {
	wait := time.Duration(a.config.Search.DebounceMillis) * time.Millisecond
	if wait <= 0 {
		return nil
	}
	a.searchSeq++
	seq := a.searchSeq
	return tea.Tick(wait, func(time.Time) tea.Msg { return searchDebounceMsg{seq: seq} })
}

func (a *App) renderInfo() tea.Cmd {
	doc, info := a.session.Document()
	return func() tea.Msg {
		if doc == nil {
			return errorMsg{err: session.ErrNoDocument}
		}
		markdown := DocumentSummary(doc, info, a.launcher.Detector())

		r, err := a.getRenderer()
		if err != nil {
			return infoRenderedMsg{content: "Error initializing renderer: " + err.Error()}
		}
		rendered, err := r.Render(markdown)
		if err != nil {
			return infoRenderedMsg{content: markdown}
		}
		return infoRenderedMsg{content: rendered}
	}
}

func (a *App) copyMessage(msg *chat.Message) tea.Cmd {
	return func() tea.Msg {
		if err := writeClipboard(msg.Text.Plain()); err != nil {
			return errorMsg{err: failed(actCopy, err)}
		}
		return noticeMsg{kind: session.StatusSuccess, text: MsgCopied}
	}
}

func (a *App) openMedia(msg *chat.Message) tea.Cmd {
	_, info := a.session.Document()
	return func() tea.Msg {
		baseDir := "."
		if info != nil {
			baseDir = filepath.Dir(info.Path)
		}
		if err := a.launcher.OpenMessage(baseDir, msg); err != nil {
			if errors.Is(err, media.ErrNoAttachment) {
				return noticeMsg{kind: session.StatusIdle, text: MsgNoAttachment}
			}
			return errorMsg{err: failed(actOpenMedia, err)}
		}
		return noticeMsg{kind: session.StatusSuccess, text: MsgOpening}
	}
}

// watchFile reloads the document when the export changes on disk. Any
// previous watch is stopped first.
func (a *App) watchFile(path string) tea.Cmd {
	a.stopWatch()
	if !a.config.UI.WatchFile {
		return nil
	}

	ctx, cancel := context.WithCancel(a.ctx)
	reloads := make(chan fileReloadedMsg, 1)
	a.watchCancel = cancel

	go func() {
		err := chat.Watch(ctx, path, func(doc *chat.Document, info *chat.FileInfo, err error) {
			select {
			case reloads <- fileReloadedMsg{doc: doc, info: info, err: err}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			debuglog.Warnf("Watching %s failed: %v", path, err)
		}
	}()

	a.listenReload = func() tea.Msg {
		select {
		case msg := <-reloads:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
	return a.listenReload
}

func (a *App) stopWatch() {
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
	}
	a.listenReload = nil
}

// retryOperation retries a database operation up to 3 times with exponential backoff
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				time.Sleep(baseDelay * time.Duration(1<<i))
			}
			continue
		}
		return nil
	}
	return lastErr
}
