package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/media"
	"github.com/pders01/chatlens/internal/search"
	"github.com/pders01/chatlens/internal/session"
	"github.com/pders01/chatlens/internal/storage"
)

const renderErrorText = "Error rendering this item"

// renderFragment styles highlighted segments for the terminal.
func renderFragment(f search.Fragment, fold bool) string {
	var b strings.Builder
	for _, seg := range f {
		text := seg.Text
		if fold {
			text = singleLine(text)
		}
		if seg.Highlight {
			b.WriteString(HighlightStyle.Render(text))
		} else {
			b.WriteString(text)
		}
	}
	return b.String()
}

var mediaBadges = []struct {
	t    media.Type
	icon string
}{
	{media.TypeImage, "📷"},
	{media.TypeVideo, "🎬"},
	{media.TypeAudio, "🎵"},
	{media.TypeDocument, "📄"},
	{media.TypeUnknown, "📎"},
}

// mediaBadge summarises attachments, e.g. "📷 2 🎬 1".
func mediaBadge(counts map[media.Type]int) string {
	var parts []string
	for _, b := range mediaBadges {
		if n := counts[b.t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", b.icon, n))
		}
	}
	return strings.Join(parts, " ")
}

type historyItem struct {
	entry *storage.HistoryEntry
	now   time.Time
}

func (i historyItem) Title() string { return i.entry.Name }

func (i historyItem) Description() string {
	parts := []string{truncateMiddle(i.entry.Path, 60)}
	if i.entry.MessageCount > 0 {
		parts = append(parts, countPrinter.Sprintf("%d messages", i.entry.MessageCount))
	}
	if i.entry.Size > 0 {
		parts = append(parts, chat.FormatFileSize(i.entry.Size))
	}
	if !i.entry.LastOpened.IsZero() {
		parts = append(parts, chat.Age(i.entry.LastOpened, i.now))
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(strings.Join(parts, " • "))
}

func (i historyItem) FilterValue() string { return i.entry.Name + " " + i.entry.Path }

type resultItem struct {
	rendered search.Rendered
	mode     session.ViewMode
	badge    string
}

func (i resultItem) Title() string {
	msg := i.rendered.Message
	if msg == nil {
		return ErrorMessageStyle.Render(renderErrorText)
	}

	header := SenderStyle.Render(msg.SenderName()) + TimeStyle.Render(" • "+chat.FormatDate(msg.Date))
	if i.badge != "" {
		header += " " + i.badge
	}
	if i.mode == session.ViewCard {
		return header
	}

	if i.rendered.Err != nil {
		return header + "  " + ErrorMessageStyle.Render(renderErrorText)
	}
	return header + "  " + renderFragment(i.rendered.Fragment, true)
}

func (i resultItem) Description() string {
	if i.rendered.Err != nil {
		return ErrorMessageStyle.Render(renderErrorText)
	}
	return renderFragment(i.rendered.Excerpt, true)
}

func (i resultItem) FilterValue() string {
	return i.rendered.Fragment.Plain()
}

// renderContextHeader is the title block shown above the context viewport.
func renderContextHeader(w *search.Window, total, width int) string {
	thread := w.ThreadName
	if thread == "" {
		thread = "Unnamed chat"
	}
	subtitle := countPrinter.Sprintf("%s • messages %d-%d of %d", w.ThreadType, w.Start+1, w.End+1, total)
	return renderHeader("› "+thread, subtitle, width)
}

// renderWindow lays out the messages of a context window for the viewport.
// It also returns the line the selected message starts on.
func renderWindow(w *search.Window, detector *media.TypeDetector, width int) (string, int) {
	if width < 20 {
		width = 20
	}
	bodyStyle := lipgloss.NewStyle().Width(width - 4)

	var rows []string
	selectedLine := 0
	for _, e := range w.Entries {
		if e.Separator != "" {
			rows = append(rows, renderSeparator(e.Separator, width-4), "")
		}

		header := SenderStyle.Render(e.Message.SenderName()) + " " + TimeStyle.Render(chat.TimeLabel(e.Message.Date))
		if detector != nil {
			if badge := mediaBadge(detector.Counts(e.Message)); badge != "" {
				header += " " + badge
			}
		}

		body := ErrorMessageStyle.Render(renderErrorText)
		if e.Err == nil {
			body = renderFragment(e.Fragment, false)
		}

		block := lipgloss.JoinVertical(lipgloss.Left, header, bodyStyle.Render(body))
		if e.Selected {
			block = SelectedStyle.Render(block)
			if len(rows) > 0 {
				selectedLine = lipgloss.Height(lipgloss.JoinVertical(lipgloss.Left, rows...))
			}
		}
		rows = append(rows, block, "")
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...), selectedLine
}
