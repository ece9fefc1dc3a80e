package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/chatlens/internal/session"
)

// Canonical short status messages used across the app.
const (
	MsgCopied         = "Copied to clipboard"
	MsgOpening        = "Opening attachment…"
	MsgNoAttachment   = "This message has no attachments"
	MsgHistoryRemoved = "Removed from recent files"
	MsgAllShown       = "All results shown"
	MsgNoResults      = "No matching messages"
	MsgNotFound       = "Message not found in the loaded file"
)

func MsgReloaded(name string, count int) string {
	return fmt.Sprintf("Reloaded %s (%d messages)", name, count)
}

func MsgViewMode(mode session.ViewMode) string {
	return fmt.Sprintf("Switched to %s view", mode)
}

// statusMsg is the latest session status, delivered to Update.
type statusMsg struct {
	kind    session.StatusKind
	text    string
	percent int
}

// statusSink implements session.StatusSink for the TUI. Updates are
// coalesced: the UI always reads the newest status, and a scan never
// blocks on a slow render.
type statusSink struct {
	mu     sync.Mutex
	latest statusMsg
	notify chan struct{}
}

func newStatusSink() *statusSink {
	return &statusSink{notify: make(chan struct{}, 1)}
}

func (s *statusSink) Status(kind session.StatusKind, text string) {
	s.mu.Lock()
	s.latest.kind = kind
	s.latest.text = text
	if kind != session.StatusLoading {
		s.latest.percent = 0
	}
	s.mu.Unlock()
	s.poke()
}

func (s *statusSink) Progress(percent int) {
	s.mu.Lock()
	s.latest.percent = percent
	s.mu.Unlock()
	s.poke()
}

func (s *statusSink) poke() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *statusSink) snapshot() statusMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// listen waits for the next status change. Update re-arms it after every
// statusMsg. It returns nil once ctx is done.
func (s *statusSink) listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.notify:
			return s.snapshot()
		case <-ctx.Done():
			return nil
		}
	}
}
