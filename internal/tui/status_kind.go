package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/chatlens/internal/session"
)

// statusStyle picks the status bar style for a session status kind.
func statusStyle(kind session.StatusKind) lipgloss.Style {
	switch kind {
	case session.StatusLoading:
		return StatusWarnStyle
	case session.StatusSuccess:
		return StatusSuccessStyle
	case session.StatusError:
		return StatusErrorStyle
	default:
		return StatusInfoStyle
	}
}
