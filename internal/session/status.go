package session

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// StatusKind mirrors the status bar states.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// StatusSink receives user-visible status updates. Implementations must be
// safe to call from the goroutine running a search.
type StatusSink interface {
	Status(kind StatusKind, text string)
	Progress(percent int)
}

type nopSink struct{}

func (nopSink) Status(StatusKind, string) {}
func (nopSink) Progress(int)              {}

// Canonical status texts.
const (
	MsgSearching   = "Searching..."
	MsgLoadingFile = "Loading file..."
	MsgFileLoaded  = "File loaded successfully"
	MsgReady       = "Ready"
	MsgCancelled   = "Search cancelled"
)

var printer = message.NewPrinter(language.English)

func MsgFound(n int) string {
	return printer.Sprintf("Found %d matching messages", n)
}

func MsgProgress(percent int) string {
	return printer.Sprintf("Searching... (%d%%)", percent)
}

// MsgShowing is the results header, e.g. "Showing 50 of 1,300 messages".
func MsgShowing(displayed, total int) string {
	return printer.Sprintf("Showing %d of %d messages", displayed, total)
}

func MsgLoaded(name string, count int) string {
	return printer.Sprintf("Loaded %s (%d messages)", name, count)
}
