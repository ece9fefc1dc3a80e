package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/config"
	"github.com/pders01/chatlens/internal/debuglog"
	"github.com/pders01/chatlens/internal/search"
)

// ViewMode selects how results are laid out.
type ViewMode int

const (
	ViewCard ViewMode = iota
	ViewList
)

func (m ViewMode) String() string {
	if m == ViewList {
		return "list"
	}
	return "card"
}

// ParseViewMode maps "card" and "list"; anything else is card.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(s), "list") {
		return ViewList
	}
	return ViewCard
}

// Outcome is a batch of results ready for display.
type Outcome struct {
	Terms    search.Terms
	Messages []*chat.Message
	Rendered []search.Rendered
	// Displayed counts every result shown so far, this batch included.
	Displayed int
	Total     int
	HasMore   bool
	View      ViewMode
}

// Stats is the results header text.
func (o *Outcome) Stats() string {
	return MsgShowing(o.Displayed, o.Total)
}

// Session owns the loaded document, the active terms, the result set and
// its pager. There is one per application.
type Session struct {
	mu        sync.Mutex
	doc       *chat.Document
	info      *chat.FileInfo
	terms     search.Terms
	pager     search.Pager
	view      ViewMode
	searching bool
	// active identifies the latest Search call.
	active uint64

	scanner      *search.Scanner
	prefilter    *search.BleveIndex
	usePrefilter bool
	renderer     search.Renderer
	sink         StatusSink
}

// New creates a session. A nil sink discards status updates.
func New(cfg *config.Config, sink StatusSink) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	s := &Session{
		scanner:  search.NewScanner(),
		renderer: search.Renderer{Excerpt: search.DefaultExcerpt},
		sink:     sink,
	}
	if cfg != nil {
		s.usePrefilter = cfg.Search.Prefilter
		s.view = ParseViewMode(cfg.UI.DefaultView)
		msg := cfg.UI.Message
		if msg.ExcerptLead > 0 && msg.ExcerptThreshold > 0 && msg.ExcerptMinLength > 0 {
			s.renderer.Excerpt = search.ExcerptRule{
				Lead:      msg.ExcerptLead,
				Threshold: msg.ExcerptThreshold,
				MinLength: msg.ExcerptMinLength,
			}
		}
	}
	return s
}

// Load replaces the document wholesale and clears the previous results and
// terms. Any running search is superseded.
func (s *Session) Load(doc *chat.Document, info *chat.FileInfo) {
	var prefilter *search.BleveIndex
	if s.usePrefilter && doc != nil {
		idx, err := search.NewBleveIndex(doc.Messages)
		if err != nil {
			debuglog.Warnf("Prefilter unavailable, using full scans: %v", err)
		} else {
			prefilter = idx
		}
	}

	s.scanner.Supersede()

	s.mu.Lock()
	old := s.prefilter
	s.doc = doc
	s.info = info
	s.prefilter = prefilter
	s.terms = search.Terms{}
	s.pager.Reset()
	s.searching = false
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if doc != nil {
		debuglog.Infof("Session loaded %q: %d messages, %d skipped", doc.Name, len(doc.Messages), doc.Skipped)
	}
}

// Unload drops the document.
func (s *Session) Unload() {
	s.Load(nil, nil)
}

// LoadFile loads an export from disk. On failure the current document is
// left untouched and the error is reported to the sink.
func (s *Session) LoadFile(path string) (*chat.FileInfo, error) {
	s.sink.Status(StatusLoading, MsgLoadingFile)

	doc, info, err := chat.LoadFile(path)
	if err != nil {
		s.sink.Status(StatusError, fmt.Sprintf("Error loading file: %v", err))
		return nil, err
	}

	s.Load(doc, info)
	s.sink.Status(StatusSuccess, MsgFileLoaded)
	return info, nil
}

// Document returns the loaded document and its file info.
func (s *Session) Document() (*chat.Document, *chat.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.info
}

func (s *Session) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

func (s *Session) Terms() search.Terms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terms
}

func (s *Session) View() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Search parses query, scans the document and returns the first batch.
// A search started while another runs supersedes it; the older call then
// returns search.ErrSuperseded and changes nothing.
func (s *Session) Search(ctx context.Context, query string) (out *Outcome, err error) {
	terms := search.Parse(strings.TrimSpace(query))
	if terms.IsEmpty() {
		s.sink.Status(StatusError, ErrEmptyQuery.Error())
		return nil, ErrEmptyQuery
	}

	s.mu.Lock()
	doc := s.doc
	if doc == nil {
		s.mu.Unlock()
		s.sink.Status(StatusError, ErrNoDocument.Error())
		return nil, ErrNoDocument
	}
	s.active++
	mine := s.active
	s.searching = true
	var pf search.Prefilter
	if s.prefilter != nil {
		pf = s.prefilter
	}
	s.mu.Unlock()

	logger := debuglog.WithFields(debuglog.Fields{"query": terms.String()})

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Search failed: %v", r)
			err = fmt.Errorf("search failed: %v", r)
			out = nil
			s.sink.Status(StatusError, fmt.Sprintf("Error during search: %v", r))
		}
		if err != nil {
			s.settle(mine)
		}
	}()

	s.sink.Status(StatusLoading, MsgSearching)
	results, err := s.scanner.ScanWith(ctx, doc.Messages, terms, pf, func(percent int) {
		s.sink.Progress(percent)
		s.sink.Status(StatusLoading, MsgProgress(percent))
	})
	if err != nil {
		if errors.Is(err, search.ErrSuperseded) {
			logger.Debugf("Search superseded")
			return nil, err
		}
		logger.Warnf("Search stopped: %v", err)
		s.sink.Status(StatusError, MsgCancelled)
		return nil, err
	}

	sortNewestFirst(results)

	s.mu.Lock()
	if s.active != mine || s.doc != doc {
		s.mu.Unlock()
		return nil, search.ErrSuperseded
	}
	s.terms = terms
	s.pager.SetResults(results)
	batch := s.pager.NextBatch()
	out = s.outcomeLocked(batch)
	s.searching = false
	s.mu.Unlock()

	out.Rendered = s.renderer.Render(batch, terms)
	s.sink.Status(StatusSuccess, MsgFound(len(results)))
	logger.Infof("Found %d matching messages", len(results))
	return out, nil
}

// settle clears the searching flag if mine is still the latest search.
func (s *Session) settle(mine uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == mine {
		s.searching = false
	}
}

// Cancel stops a running search. That search fails with
// search.ErrCancelled and the sink reports MsgCancelled.
func (s *Session) Cancel() {
	s.scanner.Cancel()
}

// sortNewestFirst orders by date descending. Ties keep document order and
// unparseable dates sort as the oldest.
func sortNewestFirst(results []*chat.Message) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.Time().After(results[j].Date.Time())
	})
}

func (s *Session) outcomeLocked(batch []*chat.Message) *Outcome {
	return &Outcome{
		Terms:     s.terms,
		Messages:  batch,
		Displayed: s.pager.DisplayedCount(),
		Total:     s.pager.Total(),
		HasMore:   s.pager.HasMore(),
		View:      s.view,
	}
}

// LoadMore returns the next batch. The outcome has no messages once every
// result has been shown.
func (s *Session) LoadMore() *Outcome {
	s.mu.Lock()
	batch := s.pager.NextBatch()
	out := s.outcomeLocked(batch)
	s.mu.Unlock()

	out.Rendered = s.renderer.Render(batch, out.Terms)
	return out
}

// SetView switches the layout and returns every result shown so far,
// re-rendered. Paging position is unchanged.
func (s *Session) SetView(mode ViewMode) *Outcome {
	s.mu.Lock()
	s.view = mode
	shown := s.pager.Displayed()
	out := s.outcomeLocked(shown)
	s.mu.Unlock()

	out.Rendered = s.renderer.Render(shown, out.Terms)
	return out
}

// Context expands the neighbourhood of the message with id, highlighted
// with the active terms.
func (s *Session) Context(id chat.ID) (*search.Window, bool) {
	s.mu.Lock()
	doc, terms := s.doc, s.terms
	s.mu.Unlock()
	return search.Expand(doc, id, terms)
}

// IndexedCount reports how many messages the prefilter holds. ok is false
// when searches run as full scans.
func (s *Session) IndexedCount() (n int, ok bool) {
	s.mu.Lock()
	idx := s.prefilter
	s.mu.Unlock()
	if idx == nil {
		return 0, false
	}
	var stats search.DebugStatser = idx
	n, err := stats.DocCount()
	if err != nil {
		debuglog.Debugf("Prefilter stats unavailable: %v", err)
		return 0, false
	}
	return n, true
}

// Clear drops the results and terms but keeps the document.
func (s *Session) Clear() {
	s.scanner.Supersede()
	s.mu.Lock()
	s.terms = search.Terms{}
	s.pager.Reset()
	s.searching = false
	s.mu.Unlock()
	s.sink.Status(StatusIdle, MsgReady)
}

// Close releases the prefilter index.
func (s *Session) Close() error {
	s.scanner.Supersede()
	s.mu.Lock()
	idx := s.prefilter
	s.prefilter = nil
	s.mu.Unlock()
	if idx != nil {
		return idx.Close()
	}
	return nil
}
