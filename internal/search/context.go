package search

import "github.com/pders01/chatlens/internal/chat"

// ContextRadius is how many messages are shown on each side of a selected
// message.
const ContextRadius = 5

// Entry is one message in a context window.
type Entry struct {
	Message *chat.Message
	// Index is the message's position in the document.
	Index    int
	Selected bool
	Fragment Fragment
	// Separator is the day label when this entry starts a new day, else "".
	Separator string
	Err       error
}

// Window is the neighbourhood of a selected message.
type Window struct {
	ThreadName string
	ThreadType string
	// Start and End are the inclusive document positions covered.
	Start   int
	End     int
	Entries []Entry
}

// Selected returns the selected entry.
func (w *Window) Selected() (Entry, bool) {
	for _, e := range w.Entries {
		if e.Selected {
			return e, true
		}
	}
	return Entry{}, false
}

// Expand returns up to ContextRadius messages on each side of the message
// with the given id, clamped to the document and in document order. Each
// entry is highlighted with terms, or only escaped when terms are empty.
// ok is false when doc is nil or the id is absent.
func Expand(doc *chat.Document, id chat.ID, terms Terms) (*Window, bool) {
	if doc == nil {
		return nil, false
	}
	at := doc.IndexOf(id)
	if at < 0 {
		return nil, false
	}

	start := at - ContextRadius
	if start < 0 {
		start = 0
	}
	end := at + ContextRadius
	if end > len(doc.Messages)-1 {
		end = len(doc.Messages) - 1
	}

	w := &Window{
		ThreadName: doc.Name,
		ThreadType: doc.Type,
		Start:      start,
		End:        end,
	}

	lastDay := ""
	for i := start; i <= end; i++ {
		msg := doc.Messages[i]
		if msg == nil {
			continue
		}
		entry := Entry{Message: msg, Index: i, Selected: i == at}

		if day := chat.DayLabel(msg.Date); day != lastDay {
			entry.Separator = day
			lastDay = day
		}

		text, err := msg.Text.String()
		if err != nil {
			entry.Err = err
		} else {
			entry.Fragment = Mark(text, terms)
		}
		w.Entries = append(w.Entries, entry)
	}
	return w, true
}
